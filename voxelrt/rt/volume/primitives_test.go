package volume

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

func TestShapesBox(t *testing.T) {
	var s Shapes
	s.Box(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 1, 3}, Color{1, 2, 3})
	require.Len(t, s.Points, 2*1*3)
	for _, p := range s.Points {
		assert.True(t, p.X >= 0 && p.X < 2 && p.Y == 0 && p.Z >= 0 && p.Z < 3, "%+v", p)
		assert.Equal(t, uint8(2), p.G)
	}
}

func TestShapesSphere(t *testing.T) {
	var s Shapes
	s.Sphere(mgl32.Vec3{4, 4, 4}, 2, Color{255, 0, 0})
	require.NotEmpty(t, s.Points)
	center := mgl32.Vec3{4, 4, 4}
	for _, p := range s.Points {
		v := mgl32.Vec3{float32(p.X) + 0.5, float32(p.Y) + 0.5, float32(p.Z) + 0.5}
		assert.LessOrEqual(t, v.Sub(center).Len(), float32(2))
	}
	// The eight voxels around the center are inside.
	assert.Contains(t, s.Points, octree.Point{X: 3, Y: 3, Z: 3, R: 255})
	assert.Contains(t, s.Points, octree.Point{X: 4, Y: 4, Z: 4, R: 255})
}

func TestShapesCone(t *testing.T) {
	var s Shapes
	s.Cone(mgl32.Vec3{4, 0, 4}, mgl32.Vec3{4, 6, 4}, 3, Color{0, 0, 9})
	require.NotEmpty(t, s.Points)
	widest := map[int32]int{}
	for _, p := range s.Points {
		widest[p.Y]++
	}
	assert.Greater(t, widest[0], widest[4], "the cone narrows towards the tip")

	var flat Shapes
	flat.Cone(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, 3, Color{})
	assert.Empty(t, flat.Points)
}

func TestDemoPointsBuild(t *testing.T) {
	points := DemoPoints(32)
	require.NotEmpty(t, points)
	tree, err := octree.Build(points)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())
	assert.GreaterOrEqual(t, tree.Depth, uint32(6))
}
