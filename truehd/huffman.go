/*
NAME
  huffman.go

DESCRIPTION
  huffman.go implements the three small Huffman decoding trees used for
  residual-sample entropy coding (§4.2, §9 "Huffman tables as static
  data"). Each tree is built as an explicit binary tree, mirroring the
  nested nested-array literal the reference decoder uses to define its
  trees at compile time, which keeps the Go source directly comparable
  to the reference shape rather than a hand-derived bit-code table.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehd

import (
	"fmt"

	"github.com/truehdd/truehdd/bits"
)

// huffNode is one node of a Huffman decode tree: either a leaf carrying a
// decoded value, or an internal node with a child for bit 0 and a child
// for bit 1.
type huffNode struct {
	isLeaf bool
	value  int32
	zero   *huffNode
	one    *huffNode
}

func leaf(v int32) *huffNode { return &huffNode{isLeaf: true, value: v} }
func node(zero, one *huffNode) *huffNode { return &huffNode{zero: zero, one: one} }

// HuffTree1, HuffTree2, HuffTree3 mirror the reference decoder's
// define_huffman_tree! literals exactly, nesting level for nesting level.
var (
	huffTree1 = buildHuffTree1()
	huffTree2 = buildHuffTree2()
	huffTree3 = buildHuffTree3()
)

func buildHuffTree1() *huffNode {
	n0 := node(leaf(-7), leaf(-7))
	n1 := node(n0, leaf(-6))
	n2 := node(n1, leaf(-5))
	n3 := node(n2, leaf(-4))
	n4 := node(n3, leaf(-3))
	n5 := node(n4, leaf(-2))
	negBranch := node(n5, leaf(-1))

	p0 := node(leaf(10), leaf(10))
	p1 := node(p0, leaf(9))
	p2 := node(p1, leaf(8))
	p3 := node(p2, leaf(7))
	p4 := node(p3, leaf(6))
	p5 := node(p4, leaf(5))
	posBranch := node(p5, leaf(4))

	p := node(negBranch, posBranch)
	q := node(node(leaf(0), leaf(1)), node(leaf(2), leaf(3)))
	return node(p, q)
}

func buildHuffTree2() *huffNode {
	n0 := node(leaf(-7), leaf(-7))
	n1 := node(n0, leaf(-6))
	n2 := node(n1, leaf(-5))
	n3 := node(n2, leaf(-4))
	n4 := node(n3, leaf(-3))
	n5 := node(n4, leaf(-2))
	negBranch := node(n5, leaf(-1))

	p0 := node(leaf(8), leaf(8))
	p1 := node(p0, leaf(7))
	p2 := node(p1, leaf(6))
	p3 := node(p2, leaf(5))
	p4 := node(p3, leaf(4))
	p5 := node(p4, leaf(3))
	posBranch := node(p5, leaf(2))

	p := node(negBranch, posBranch)
	q := node(leaf(0), leaf(1))
	return node(p, q)
}

func buildHuffTree3() *huffNode {
	n0 := node(leaf(-7), leaf(-7))
	n1 := node(n0, leaf(-6))
	n2 := node(n1, leaf(-5))
	n3 := node(n2, leaf(-4))
	n4 := node(n3, leaf(-3))
	n5 := node(n4, leaf(-2))
	negBranch := node(n5, leaf(-1))

	p0 := node(leaf(7), leaf(7))
	p1 := node(p0, leaf(6))
	p2 := node(p1, leaf(5))
	p3 := node(p2, leaf(4))
	p4 := node(p3, leaf(3))
	p5 := node(p4, leaf(2))
	posBranch := node(p5, leaf(1))

	p := node(negBranch, posBranch)
	return node(p, leaf(0))
}

func treeForType(huffType int) (*huffNode, error) {
	switch huffType {
	case 1:
		return huffTree1, nil
	case 2:
		return huffTree2, nil
	case 3:
		return huffTree3, nil
	default:
		return nil, fmt.Errorf("unsupported huffman table type %d", huffType)
	}
}

// DecodeHuffman walks the tree named by huffType (1..=3), reading one bit
// at a time from r, and returns the decoded value.
func DecodeHuffman(r *bits.Reader, huffType int) (int32, error) {
	n, err := treeForType(huffType)
	if err != nil {
		return 0, err
	}
	for !n.isLeaf {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			n = n.one
		} else {
			n = n.zero
		}
	}
	return n.value, nil
}
