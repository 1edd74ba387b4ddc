package volume

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

// MaxPaletteColors is the palette capacity. Cell value 0 means empty, so a
// byte cell can reference at most 255 colors.
const MaxPaletteColors = 255

var ErrPaletteFull = errors.New("volume: more than 255 distinct colors")

// Palette is an RGBA table indexed by cell value - 1.
type Palette struct {
	Colors [256][4]uint8
	Size   int
}

// Index returns the palette slot of an RGB color, adding it if new.
func (p *Palette) Index(r, g, b uint8) (uint8, error) {
	for i := 0; i < p.Size; i++ {
		c := p.Colors[i]
		if c[0] == r && c[1] == g && c[2] == b {
			return uint8(i), nil
		}
	}
	if p.Size == MaxPaletteColors {
		return 0, ErrPaletteFull
	}
	p.Colors[p.Size] = [4]uint8{r, g, b, 255}
	p.Size++
	return uint8(p.Size - 1), nil
}

// DenseModel is a voxel grid bounded by the extents of its source points.
type DenseModel struct {
	Width, Height, Depth uint32
	// Cells holds palette index + 1 per voxel, 0 for empty, laid out x + y*W + z*W*H.
	Cells   []uint8
	Palette Palette
}

func (m *DenseModel) index(x, y, z uint32) int {
	return int(x + y*m.Width + z*m.Width*m.Height)
}

// At returns the cell value at a voxel.
func (m *DenseModel) At(x, y, z uint32) uint8 {
	return m.Cells[m.index(x, y, z)]
}

// Points lists every filled cell with its palette color.
func (m *DenseModel) Points() []octree.Point {
	var points []octree.Point
	for z := uint32(0); z < m.Depth; z++ {
		for y := uint32(0); y < m.Height; y++ {
			for x := uint32(0); x < m.Width; x++ {
				v := m.At(x, y, z)
				if v == 0 {
					continue
				}
				c := m.Palette.Colors[v-1]
				points = append(points, octree.Point{
					X: int32(x), Y: int32(y), Z: int32(z),
					R: c[0], G: c[1], B: c[2],
				})
			}
		}
	}
	return points
}

// LoadPlyModel reads a pointmap into a dense palettized grid.
func LoadPlyModel(r io.Reader) (*DenseModel, error) {
	points, err := ReadPointmap(r)
	if err != nil {
		return nil, err
	}
	return NewDenseModel(points)
}

func LoadPlyModelFile(path string) (*DenseModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPlyModel(f)
}

// NewDenseModel packs points into a grid spanning their bounding box.
func NewDenseModel(points []octree.Point) (*DenseModel, error) {
	if len(points) == 0 {
		return nil, octree.ErrEmptyInput
	}
	minX, minY, minZ := int32(math.MaxInt32), int32(math.MaxInt32), int32(math.MaxInt32)
	maxX, maxY, maxZ := int32(math.MinInt32), int32(math.MinInt32), int32(math.MinInt32)
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		minZ, maxZ = min(minZ, p.Z), max(maxZ, p.Z)
	}

	m := &DenseModel{
		Width:  uint32(int64(maxX) - int64(minX) + 1),
		Height: uint32(int64(maxY) - int64(minY) + 1),
		Depth:  uint32(int64(maxZ) - int64(minZ) + 1),
	}
	cells := uint64(m.Width) * uint64(m.Height) * uint64(m.Depth)
	if cells > math.MaxInt32 {
		return nil, fmt.Errorf("volume: %dx%dx%d grid too large", m.Width, m.Height, m.Depth)
	}
	m.Cells = make([]uint8, cells)

	for i, p := range points {
		idx, err := m.Palette.Index(p.R, p.G, p.B)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		m.Cells[m.index(uint32(p.X-minX), uint32(p.Y-minY), uint32(p.Z-minZ))] = idx + 1
	}
	return m, nil
}
