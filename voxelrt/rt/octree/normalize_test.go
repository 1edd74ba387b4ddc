package octree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTranslatesToOrigin(t *testing.T) {
	points := []Point{{X: 5, Y: -3, Z: 10}, {X: 8, Y: 1, Z: 12}}
	depth, err := Normalize(points)
	require.NoError(t, err)

	assert.Equal(t, Point{X: 0, Y: 0, Z: 0}, points[0])
	assert.Equal(t, Point{X: 3, Y: 4, Z: 2}, points[1])
	// extent 4 needs 5 cells, so 8 (depth 4).
	assert.Equal(t, uint32(4), depth)
}

func TestDepthSufficiency(t *testing.T) {
	for extent := int64(0); extent < 1100; extent++ {
		d := DepthFor(extent)
		require.GreaterOrEqual(t, d, uint32(2))
		require.GreaterOrEqual(t, GridSize(d), extent+1, "extent %d", extent)
		if d > 2 {
			require.Less(t, GridSize(d-1), extent+1, "depth %d not minimal for extent %d", d, extent)
		}
	}
}

func TestNormalizeUsesLargestAxis(t *testing.T) {
	points := []Point{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 20}}
	depth, err := Normalize(points)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), depth)
}

func TestNormalizeEmpty(t *testing.T) {
	_, err := Normalize(nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}
