package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
	"github.com/gekko3d/voxcast/voxelrt/rt/volume"
)

// DemoScene names the built-in procedural scene.
const DemoScene = "builtin:demo"

// Scene is one loaded point source and the octree built from it.
type Scene struct {
	ID     uuid.UUID
	Path   string
	Points int
	Tree   *octree.Tree
	// Palette is set when the source carries a color table.
	Palette *[256][4]uint8
}

var imageExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// LoadScene picks a reader by file extension and builds the octree. With
// palette set, pointmaps are packed into a dense palettized model first.
func LoadScene(path string, palette bool) (*Scene, error) {
	s := &Scene{ID: uuid.New(), Path: path}

	var points []octree.Point
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case path == DemoScene:
		points = volume.DemoPoints(128)
	case ext == ".ply", ext == ".txt", ext == ".pts":
		if palette {
			var model *volume.DenseModel
			model, err = volume.LoadPlyModelFile(path)
			if err == nil {
				points = model.Points()
				colors := model.Palette.Colors
				s.Palette = &colors
			}
		} else {
			points, err = volume.ReadPointmapFile(path)
		}
	case ext == ".vox":
		var vf *volume.VoxFile
		vf, err = volume.LoadVoxFile(path)
		if err == nil {
			points, err = vf.Points(0)
			colors := [256][4]uint8(vf.Palette)
			s.Palette = &colors
		}
	case imageExt[ext]:
		points, err = volume.PointsFromImageFile(path, volume.DefaultHeightfieldOptions())
	default:
		return nil, fmt.Errorf("scene %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}

	s.Points = len(points)
	s.Tree, err = octree.Build(points)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}
