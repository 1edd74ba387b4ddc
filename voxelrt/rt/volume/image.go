package volume

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

// HeightfieldOptions controls how an image becomes a voxel terrain.
type HeightfieldOptions struct {
	// MaxSide downsamples larger images so neither side exceeds it. Zero keeps the size.
	MaxSide int
	// Height is the voxel height of a white pixel.
	Height int
	// Solid fills each column down to y=0 instead of emitting only its top voxel.
	Solid bool
}

func DefaultHeightfieldOptions() HeightfieldOptions {
	return HeightfieldOptions{MaxSide: 256, Height: 32}
}

// PointsFromImage extrudes an image into a heightfield: pixel (x, row) lands
// at (x, luma*Height, row) with the pixel's color.
func PointsFromImage(r io.Reader, opts HeightfieldOptions) ([]octree.Point, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode heightfield: %w", err)
	}
	img := fitImage(src, opts.MaxSide)
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("heightfield %s image is empty", format)
	}

	height := max(opts.Height, 1)
	var points []octree.Point
	for row := b.Min.Y; row < b.Max.Y; row++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, row).RGBA()
			r8, g8, b8 := cr>>8, cg>>8, cb>>8
			luma := (299*r8 + 587*g8 + 114*b8) / 1000
			top := int32(int(luma) * height / 255)

			bottom := top
			if opts.Solid {
				bottom = 0
			}
			for y := bottom; y <= top; y++ {
				points = append(points, octree.Point{
					X: int32(x - b.Min.X), Y: y, Z: int32(row - b.Min.Y),
					R: uint8(r8), G: uint8(g8), B: uint8(b8),
				})
			}
		}
	}
	return points, nil
}

func PointsFromImageFile(path string, opts HeightfieldOptions) ([]octree.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return PointsFromImage(f, opts)
}

func fitImage(src image.Image, maxSide int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return src
	}
	if w >= h {
		h = max(h*maxSide/w, 1)
		w = maxSide
	} else {
		w = max(w*maxSide/h, 1)
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
