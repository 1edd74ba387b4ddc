package volume

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

var ErrMalformed = errors.New("volume: malformed point data")

const headerEnd = "end_header"

// ReadPointmap reads an ASCII point list: a header terminated by a line
// holding "end_header", then whitespace separated "x y z r g b" integers.
func ReadPointmap(r io.Reader) ([]octree.Point, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	for {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: header has no %s", ErrMalformed, headerEnd)
		}
		if sc.Text() == headerEnd {
			break
		}
	}

	var points []octree.Point
	var fields [6]int64
	n := 0
	for sc.Scan() {
		v, err := strconv.ParseInt(sc.Text(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrMalformed, len(points), err)
		}
		fields[n] = v
		n++
		if n < len(fields) {
			continue
		}
		n = 0
		p, err := makePoint(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrMalformed, len(points), err)
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if n != 0 {
		return nil, fmt.Errorf("%w: %d trailing values", ErrMalformed, n)
	}
	return points, nil
}

func makePoint(f [6]int64) (octree.Point, error) {
	for _, c := range f[3:] {
		if c < 0 || c > 255 {
			return octree.Point{}, fmt.Errorf("color component %d out of range", c)
		}
	}
	return octree.Point{
		X: int32(f[0]), Y: int32(f[1]), Z: int32(f[2]),
		R: uint8(f[3]), G: uint8(f[4]), B: uint8(f[5]),
	}, nil
}

func ReadPointmapFile(path string) ([]octree.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPointmap(f)
}
