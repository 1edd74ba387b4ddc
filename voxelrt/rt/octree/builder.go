package octree

import (
	"errors"
	"fmt"
)

var ErrOutOfBounds = errors.New("octree: point outside the leaf grid")

// Tree is a built octree in arena form. Nodes[0] is the root and every
// parent's eight children are contiguous.
type Tree struct {
	Nodes        []Node
	Depth        uint32
	Subdivisions int
}

// Builder grows a tree one point at a time. The node array only grows:
// subdivided nodes are never reclaimed.
type Builder struct {
	tree Tree
	size int64
}

func NewBuilder(depth uint32) *Builder {
	if depth < 2 {
		depth = 2
	}
	return &Builder{
		tree: Tree{Nodes: []Node{Empty()}, Depth: depth},
		size: GridSize(depth),
	}
}

// Insert stores p in the leaf that contains it, subdividing on the way
// down. A later insert into the same leaf replaces its color.
func (b *Builder) Insert(p Point) error {
	if !b.contains(p) {
		return fmt.Errorf("%w: (%d,%d,%d) with grid size %d", ErrOutOfBounds, p.X, p.Y, p.Z, b.size)
	}

	index := uint32(0)
	size := b.size
	var ox, oy, oz int64
	x, y, z := int64(p.X), int64(p.Y), int64(p.Z)

	for level := uint32(0); level < b.tree.Depth-1; level++ {
		half := size / 2
		child := uint32(0)
		if x >= ox+half {
			child |= 1
			ox += half
		}
		if y >= oy+half {
			child |= 2
			oy += half
		}
		if z >= oz+half {
			child |= 4
			oz += half
		}

		if !b.tree.Nodes[index].IsParent() {
			b.subdivide(index)
		}
		index = b.tree.Nodes[index].FirstChild + child
		size = half
	}

	b.tree.Nodes[index] = Colored(p.R, p.G, p.B)
	return nil
}

func (b *Builder) subdivide(index uint32) {
	first := uint32(len(b.tree.Nodes))
	b.tree.Nodes[index] = Parent(first)
	for i := 0; i < ChildCount; i++ {
		b.tree.Nodes = append(b.tree.Nodes, Empty())
	}
	b.tree.Subdivisions++
}

func (b *Builder) contains(p Point) bool {
	in := func(v int32) bool { return v >= 0 && int64(v) < b.size }
	return in(p.X) && in(p.Y) && in(p.Z)
}

// Tree returns the tree built so far. It shares node storage with the builder.
func (b *Builder) Tree() *Tree {
	t := b.tree
	return &t
}

// Build normalizes points in place and inserts all of them.
func Build(points []Point) (*Tree, error) {
	depth, err := Normalize(points)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(depth)
	for _, p := range points {
		if err := b.Insert(p); err != nil {
			return nil, err
		}
	}
	return b.Tree(), nil
}

// Words returns the flat encoding of the tree.
func (t *Tree) Words() []uint32 { return EncodeNodes(t.Nodes) }

// Bytes returns the little-endian encoding of the tree.
func (t *Tree) Bytes() []byte { return EncodeBytes(t.Nodes) }

// Len is the node record count.
func (t *Tree) Len() int { return len(t.Nodes) }

type Stats struct {
	Parents int
	Colored int
	Empty   int
}

func (t *Tree) Stats() Stats {
	var s Stats
	for _, n := range t.Nodes {
		switch n.Kind {
		case KindParent:
			s.Parents++
		case KindColored:
			s.Colored++
		default:
			s.Empty++
		}
	}
	return s
}

// Validate checks the structural invariants of the arena. Children are
// allocated after their parent, every record is reachable exactly once and
// no parent sits at the leaf level.
func (t *Tree) Validate() error {
	if len(t.Nodes) == 0 {
		return errors.New("octree: no root")
	}
	if t.Depth < 2 {
		return fmt.Errorf("octree: depth %d below 2", t.Depth)
	}
	if want := 1 + ChildCount*t.Subdivisions; len(t.Nodes) != want {
		return fmt.Errorf("octree: %d records, want %d for %d subdivisions", len(t.Nodes), want, t.Subdivisions)
	}

	seen := make([]bool, len(t.Nodes))
	seen[0] = true
	var walk func(index uint32, level uint32) error
	walk = func(index uint32, level uint32) error {
		n := t.Nodes[index]
		switch n.Kind {
		case KindParent:
			if level >= t.Depth-1 {
				return fmt.Errorf("octree: parent %d at leaf level", index)
			}
			if n.FirstChild <= index || int(n.FirstChild)+ChildCount > len(t.Nodes) {
				return fmt.Errorf("octree: parent %d has children at %d", index, n.FirstChild)
			}
			for c := uint32(0); c < ChildCount; c++ {
				ci := n.FirstChild + c
				if seen[ci] {
					return fmt.Errorf("octree: record %d reachable twice", ci)
				}
				seen[ci] = true
				if err := walk(ci, level+1); err != nil {
					return err
				}
			}
		case KindColored:
			if n.FirstChild != 0 {
				return fmt.Errorf("octree: colored leaf %d has offset %d", index, n.FirstChild)
			}
		case KindEmpty:
		default:
			return fmt.Errorf("octree: record %d has unknown kind %d", index, n.Kind)
		}
		return nil
	}
	if err := walk(0, 0); err != nil {
		return err
	}
	for i, ok := range seen {
		if !ok {
			return fmt.Errorf("octree: record %d unreachable", i)
		}
	}
	return nil
}
