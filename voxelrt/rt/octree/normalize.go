package octree

import (
	"errors"
	"math"
)

var ErrEmptyInput = errors.New("octree: no points")

// Point is a voxel position with an 8-bit-per-channel color.
type Point struct {
	X, Y, Z int32
	R, G, B uint8
}

// Normalize translates points in place so every axis starts at zero and
// returns the smallest depth whose leaf grid covers the largest extent.
func Normalize(points []Point) (uint32, error) {
	if len(points) == 0 {
		return 0, ErrEmptyInput
	}

	minX, minY, minZ := int32(math.MaxInt32), int32(math.MaxInt32), int32(math.MaxInt32)
	maxX, maxY, maxZ := int32(math.MinInt32), int32(math.MinInt32), int32(math.MinInt32)
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		minZ, maxZ = min(minZ, p.Z), max(maxZ, p.Z)
	}

	for i := range points {
		points[i].X -= minX
		points[i].Y -= minY
		points[i].Z -= minZ
	}

	extent := max(int64(maxX)-int64(minX), int64(maxY)-int64(minY), int64(maxZ)-int64(minZ))
	return DepthFor(extent), nil
}

// DepthFor returns the depth needed to hold coordinates in [0, extent].
func DepthFor(extent int64) uint32 {
	size, depth := int64(2), uint32(2)
	for size < extent+1 {
		size *= 2
		depth++
	}
	return depth
}

// GridSize is the leaf grid edge length for a depth.
func GridSize(depth uint32) int64 {
	return int64(1) << (depth - 1)
}
