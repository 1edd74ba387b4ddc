package octree

import (
	"encoding/binary"
	"fmt"
)

// Kind is the first word of an encoded node record.
type Kind uint32

const (
	KindParent  Kind = 0
	KindColored Kind = 1
	KindEmpty   Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindParent:
		return "PARENT"
	case KindColored:
		return "COLORED"
	case KindEmpty:
		return "EMPTY"
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

const (
	// WordsPerNode is the number of u32 words in an encoded record.
	WordsPerNode = 5
	// NodeSize is the encoded record size in bytes.
	NodeSize = WordsPerNode * 4
	// ChildCount is the fan-out of a PARENT node.
	ChildCount = 8
)

// Node is one octree record. FirstChild is meaningful only for parents,
// R, G, B only for colored leaves.
type Node struct {
	Kind       Kind
	R, G, B    uint8
	FirstChild uint32
}

func Parent(firstChild uint32) Node { return Node{Kind: KindParent, FirstChild: firstChild} }

func Colored(r, g, b uint8) Node { return Node{Kind: KindColored, R: r, G: g, B: b} }

func Empty() Node { return Node{Kind: KindEmpty} }

func (n Node) IsParent() bool { return n.Kind == KindParent }

// Words flattens the node to {kind, r, g, b, childOrDataOffset}.
func (n Node) Words() [WordsPerNode]uint32 {
	switch n.Kind {
	case KindParent:
		return [WordsPerNode]uint32{uint32(KindParent), 0, 0, 0, n.FirstChild}
	case KindColored:
		return [WordsPerNode]uint32{uint32(KindColored), uint32(n.R), uint32(n.G), uint32(n.B), 0}
	default:
		return [WordsPerNode]uint32{uint32(KindEmpty), 0, 0, 0, 0}
	}
}

// EncodeNodes flattens nodes into the word array the compute kernel reads.
func EncodeNodes(nodes []Node) []uint32 {
	words := make([]uint32, 0, len(nodes)*WordsPerNode)
	for _, n := range nodes {
		w := n.Words()
		words = append(words, w[:]...)
	}
	return words
}

// DecodeNodes is the inverse of EncodeNodes.
func DecodeNodes(words []uint32) ([]Node, error) {
	if len(words)%WordsPerNode != 0 {
		return nil, fmt.Errorf("octree: %d words is not a whole number of records", len(words))
	}
	nodes := make([]Node, 0, len(words)/WordsPerNode)
	for i := 0; i < len(words); i += WordsPerNode {
		switch Kind(words[i]) {
		case KindParent:
			nodes = append(nodes, Parent(words[i+4]))
		case KindColored:
			r, g, b := words[i+1], words[i+2], words[i+3]
			if r > 255 || g > 255 || b > 255 {
				return nil, fmt.Errorf("octree: record %d has color (%d,%d,%d) outside 0..255", i/WordsPerNode, r, g, b)
			}
			nodes = append(nodes, Colored(uint8(r), uint8(g), uint8(b)))
		case KindEmpty:
			nodes = append(nodes, Empty())
		default:
			return nil, fmt.Errorf("octree: record %d has unknown kind %d", i/WordsPerNode, words[i])
		}
	}
	return nodes, nil
}

// EncodeBytes packs nodes little-endian, ready for a staging buffer.
func EncodeBytes(nodes []Node) []byte {
	buf := make([]byte, len(nodes)*NodeSize)
	for i, n := range nodes {
		w := n.Words()
		off := i * NodeSize
		for j, v := range w {
			binary.LittleEndian.PutUint32(buf[off+j*4:], v)
		}
	}
	return buf
}
