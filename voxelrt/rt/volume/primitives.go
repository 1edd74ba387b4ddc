package volume

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

type Color [3]uint8

// Shapes voxelizes primitives into a point list. A voxel is filled when its
// center lies inside the shape.
type Shapes struct {
	Points []octree.Point
}

func (s *Shapes) set(x, y, z int, c Color) {
	s.Points = append(s.Points, octree.Point{
		X: int32(x), Y: int32(y), Z: int32(z),
		R: c[0], G: c[1], B: c[2],
	})
}

// each visits every voxel whose cell intersects [lo, hi].
func each(lo, hi mgl32.Vec3, fn func(x, y, z int, p mgl32.Vec3)) {
	var minI, maxI [3]int
	for i := 0; i < 3; i++ {
		minI[i] = int(math.Floor(float64(lo[i])))
		maxI[i] = int(math.Ceil(float64(hi[i])))
	}
	for x := minI[0]; x <= maxI[0]; x++ {
		for y := minI[1]; y <= maxI[1]; y++ {
			for z := minI[2]; z <= maxI[2]; z++ {
				fn(x, y, z, mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5})
			}
		}
	}
}

func (s *Shapes) Sphere(center mgl32.Vec3, radius float32, c Color) {
	r := mgl32.Vec3{radius, radius, radius}
	r2 := radius * radius
	each(center.Sub(r), center.Add(r), func(x, y, z int, p mgl32.Vec3) {
		if p.Sub(center).LenSqr() <= r2 {
			s.set(x, y, z, c)
		}
	})
}

// Box fills every voxel whose center lies in [minB, maxB].
func (s *Shapes) Box(minB, maxB mgl32.Vec3, c Color) {
	each(minB, maxB, func(x, y, z int, p mgl32.Vec3) {
		for i := 0; i < 3; i++ {
			if p[i] < minB[i] || p[i] > maxB[i] {
				return
			}
		}
		s.set(x, y, z, c)
	})
}

// Cone fills a cone with its base circle centered on base and its apex at tip.
func (s *Shapes) Cone(base, tip mgl32.Vec3, radius float32, c Color) {
	axis := tip.Sub(base)
	height := axis.Len()
	if height < 1e-5 {
		return
	}
	axis = axis.Normalize()

	extent := max(radius, height)
	center := base.Add(tip).Mul(0.5)
	e := mgl32.Vec3{extent, extent, extent}
	each(center.Sub(e), center.Add(e), func(x, y, z int, p mgl32.Vec3) {
		v := p.Sub(base)
		along := v.Dot(axis)
		if along < 0 || along > height {
			return
		}
		r := radius * (1 - along/height)
		if v.LenSqr()-along*along <= r*r {
			s.set(x, y, z, c)
		}
	})
}

// DemoPoints builds a small test scene in a size^3 grid: a ground slab with
// a sphere and a cone standing on it.
func DemoPoints(size int) []octree.Point {
	n := float32(size)
	var s Shapes
	s.Box(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{n, n / 16, n}, Color{96, 160, 72})
	s.Sphere(mgl32.Vec3{n * 0.35, n * 0.3, n * 0.5}, n*0.2, Color{220, 60, 40})
	s.Cone(mgl32.Vec3{n * 0.72, n / 16, n * 0.5}, mgl32.Vec3{n * 0.72, n * 0.6, n * 0.5}, n*0.15, Color{240, 200, 60})
	return s.Points
}
