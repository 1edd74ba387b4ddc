package volume

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

const plyHeader = "ply\nformat ascii 1.0\nelement vertex 2\nend_header\n"

func TestReadPointmap(t *testing.T) {
	points, err := ReadPointmap(strings.NewReader(plyHeader + "1 2 3 10 20 30\n-4 5 6 255 0 7\n"))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, octree.Point{X: 1, Y: 2, Z: 3, R: 10, G: 20, B: 30}, points[0])
	assert.Equal(t, octree.Point{X: -4, Y: 5, Z: 6, R: 255, G: 0, B: 7}, points[1])
}

func TestReadPointmapErrors(t *testing.T) {
	cases := map[string]string{
		"no header end":  "ply\n1 2 3 4 5 6\n",
		"trailing":       plyHeader + "1 2 3 4 5 6 7 8\n",
		"not a number":   plyHeader + "1 2 x 4 5 6\n",
		"color overflow": plyHeader + "1 2 3 4 5 256\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadPointmap(strings.NewReader(input))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestLoadPlyModel(t *testing.T) {
	input := plyHeader + "10 10 10 1 2 3\n12 10 11 4 5 6\n10 11 10 1 2 3\n"
	m, err := LoadPlyModel(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, uint32(3), m.Width)
	assert.Equal(t, uint32(2), m.Height)
	assert.Equal(t, uint32(2), m.Depth)
	assert.Equal(t, 2, m.Palette.Size)
	assert.Equal(t, uint8(1), m.At(0, 0, 0))
	assert.Equal(t, uint8(2), m.At(2, 0, 1))
	assert.Equal(t, uint8(1), m.At(0, 1, 0))
	assert.Equal(t, uint8(0), m.At(1, 0, 0))
	assert.Equal(t, [4]uint8{4, 5, 6, 255}, m.Palette.Colors[1])

	assert.Len(t, m.Points(), 3)
}

func TestDenseModelPaletteFull(t *testing.T) {
	points := make([]octree.Point, 0, 256)
	for i := 0; i < 256; i++ {
		points = append(points, octree.Point{X: int32(i), R: uint8(i)})
	}
	_, err := NewDenseModel(points)
	require.ErrorIs(t, err, ErrPaletteFull)

	_, err = NewDenseModel(points[:255])
	require.NoError(t, err)
}

func voxChunk(id string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(id)
	_ = binary.Write(&buf, binary.LittleEndian, int32(len(data)))
	_ = binary.Write(&buf, binary.LittleEndian, int32(0))
	buf.Write(data)
	return buf.Bytes()
}

func TestLoadVox(t *testing.T) {
	size := make([]byte, 12)
	binary.LittleEndian.PutUint32(size[0:], 4)
	binary.LittleEndian.PutUint32(size[4:], 5)
	binary.LittleEndian.PutUint32(size[8:], 6)
	xyzi := []byte{2, 0, 0, 0, 1, 2, 3, 1, 0, 0, 5, 2}
	rgba := make([]byte, 256*4)
	copy(rgba, []byte{200, 100, 50, 255, 1, 2, 3, 255})

	var file bytes.Buffer
	file.WriteString("VOX ")
	_ = binary.Write(&file, binary.LittleEndian, int32(150))
	file.Write(voxChunk("MAIN", nil))
	file.Write(voxChunk("SIZE", size))
	file.Write(voxChunk("XYZI", xyzi))
	file.Write(voxChunk("RGBA", rgba))

	vf, err := LoadVox(&file)
	require.NoError(t, err)
	assert.Equal(t, 150, vf.Version)
	require.Len(t, vf.Models, 1)
	assert.Equal(t, uint32(4), vf.Models[0].SizeX)
	require.Len(t, vf.Models[0].Voxels, 2)

	points, err := vf.Points(0)
	require.NoError(t, err)
	assert.Equal(t, octree.Point{X: 1, Y: 3, Z: 2, R: 200, G: 100, B: 50}, points[0])
	assert.Equal(t, octree.Point{X: 0, Y: 5, Z: 0, R: 1, G: 2, B: 3}, points[1])

	_, err = vf.Points(1)
	require.Error(t, err)
}

func TestLoadVoxRejectsBadMagic(t *testing.T) {
	_, err := LoadVox(strings.NewReader("NOPE\x00\x00\x00\x00"))
	require.Error(t, err)
}

func checkerImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func TestPointsFromImage(t *testing.T) {
	encoders := map[string]func(*bytes.Buffer, image.Image) error{
		"png": func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) },
		"bmp": func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) },
	}
	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, enc(&buf, checkerImage(4, 3)))

			points, err := PointsFromImage(&buf, HeightfieldOptions{Height: 8})
			require.NoError(t, err)
			require.Len(t, points, 12)
			assert.Equal(t, octree.Point{X: 0, Y: 8, Z: 0, R: 255, G: 255, B: 255}, points[0])
			assert.Equal(t, octree.Point{X: 1, Y: 0, Z: 0}, points[1])
		})
	}
}

func TestPointsFromImageSolidAndScaled(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	require.NoError(t, png.Encode(&buf, img))

	points, err := PointsFromImage(&buf, HeightfieldOptions{MaxSide: 4, Height: 2, Solid: true})
	require.NoError(t, err)
	// 4x2 after scaling, three voxels per column.
	assert.Len(t, points, 4*2*3)
}
