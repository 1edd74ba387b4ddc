package volume

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

const VOXMagicNumber = "VOX "

type VoxVoxel struct {
	X, Y, Z, ColorIndex byte
}

type VoxModel struct {
	SizeX, SizeY, SizeZ uint32
	Voxels              []VoxVoxel
}

type VoxPalette [256][4]byte // RGBA colors

type VoxFile struct {
	Version int
	Models  []VoxModel
	Palette VoxPalette
}

func LoadVoxFile(filename string) (*VoxFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadVox(bufio.NewReader(file))
}

// LoadVox parses a MagicaVoxel file. Scene graph, layer and material chunks
// are skipped.
func LoadVox(r io.Reader) (*VoxFile, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if string(magic[:]) != VOXMagicNumber {
		return nil, errors.New("not a valid VOX file")
	}

	var version int32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}

	vf := &VoxFile{Version: int(version), Palette: defaultVoxPalette()}
	sizes, voxels := 0, 0

	for {
		var chunkID [4]byte
		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		var header [2]int32
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			return nil, err
		}
		chunkSize := header[0]
		if chunkSize < 0 {
			return nil, fmt.Errorf("chunk %s has negative size", chunkID[:])
		}

		// MAIN only wraps children, its own content is empty.
		chunkData := make([]byte, chunkSize)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, err
		}

		switch string(chunkID[:]) {
		case "PACK":
			if len(chunkData) < 4 {
				return nil, errors.New("PACK chunk too small")
			}
			vf.Models = make([]VoxModel, binary.LittleEndian.Uint32(chunkData[:4]))
		case "SIZE":
			if len(chunkData) < 12 {
				return nil, errors.New("SIZE chunk too small")
			}
			if sizes >= len(vf.Models) {
				vf.Models = append(vf.Models, VoxModel{})
			}
			model := &vf.Models[sizes]
			model.SizeX = binary.LittleEndian.Uint32(chunkData[0:4])
			model.SizeY = binary.LittleEndian.Uint32(chunkData[4:8])
			model.SizeZ = binary.LittleEndian.Uint32(chunkData[8:12])
			sizes++
		case "XYZI":
			if voxels >= sizes {
				return nil, errors.New("XYZI chunk without SIZE")
			}
			if len(chunkData) < 4 {
				return nil, errors.New("XYZI chunk too small")
			}
			numVoxels := int(binary.LittleEndian.Uint32(chunkData[:4]))
			if 4+numVoxels*4 > len(chunkData) {
				return nil, errors.New("XYZI chunk data overflow")
			}
			model := &vf.Models[voxels]
			model.Voxels = make([]VoxVoxel, numVoxels)
			for i := range model.Voxels {
				off := 4 + i*4
				model.Voxels[i] = VoxVoxel{
					X:          chunkData[off],
					Y:          chunkData[off+1],
					Z:          chunkData[off+2],
					ColorIndex: chunkData[off+3],
				}
			}
			voxels++
		case "RGBA":
			// Entry i of the chunk is color index i+1.
			for i := 0; i < 255 && i*4+3 < len(chunkData); i++ {
				off := i * 4
				copy(vf.Palette[i+1][:], chunkData[off:off+4])
			}
		}
	}

	return vf, nil
}

// Points converts a model to octree points. MagicaVoxel is Z-up, the
// renderer is Y-up, so Y and Z are swapped.
func (vf *VoxFile) Points(model int) ([]octree.Point, error) {
	if model < 0 || model >= len(vf.Models) {
		return nil, fmt.Errorf("vox: model %d of %d", model, len(vf.Models))
	}
	m := vf.Models[model]
	points := make([]octree.Point, 0, len(m.Voxels))
	for _, v := range m.Voxels {
		c := vf.Palette[v.ColorIndex]
		points = append(points, octree.Point{
			X: int32(v.X), Y: int32(v.Z), Z: int32(v.Y),
			R: c[0], G: c[1], B: c[2],
		})
	}
	return points, nil
}

func defaultVoxPalette() VoxPalette {
	var palette VoxPalette
	for i := range palette {
		palette[i] = [4]uint8{255, 255, 255, 255} // white as fallback
	}
	return palette
}
