// Package lineage is the ownership tree over cells: ancestry, per-edge
// mutation counts and timing, with keep-set pruning, dead-branch
// pruning, topology simplification and Newick serialization. Trees can
// run to millions of nodes and tens of thousands of levels deep, so
// every traversal here uses an explicit work stack; nothing recurses.
package lineage

import (
	"fmt"

	"bcellsim/internal/cell"
)

// NotSampled is the SampledAt value of a node that was never frozen.
const NotSampled = -1

// Node owns its cell and its children. Identity is the owned cell's
// run-scoped integer ID; it is stable across processes.
type Node struct {
	Cell     *cell.Cell
	Parent   *Node
	Children []*Node

	// Mutations accumulated on the edge from the parent.
	HeavyMutations int
	LightMutations int

	Generation int
	CloneID    int

	// Antigen counts reproductive units captured this round and drives
	// the reproduction fan-out.
	Antigen int

	// SampledAt freezes the node as a retained tip.
	SampledAt int

	// TimeSinceSplit is only meaningful in a simplified tree: the number
	// of generations collapsed into the incoming edge.
	TimeSinceSplit int
}

// NewRoot wraps the founding naive cell.
func NewRoot(c *cell.Cell, cloneID int) *Node {
	return &Node{Cell: c, CloneID: cloneID, SampledAt: NotSampled}
}

// NewChild wraps a freshly spawned cell one generation below the parent.
// The caller attaches it with AddChild.
func NewChild(c *cell.Cell, parent *Node, heavyMutations, lightMutations int) *Node {
	return &Node{
		Cell:           c,
		HeavyMutations: heavyMutations,
		LightMutations: lightMutations,
		Generation:     parent.Generation + 1,
		CloneID:        parent.CloneID,
		SampledAt:      NotSampled,
	}
}

// AddChild transfers ownership of child under n.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// ID is the stable identity used for pruning keys and output labels.
func (n *Node) ID() int64 {
	return n.Cell.ID
}

// Sampled reports whether the node is a frozen tip.
func (n *Node) Sampled() bool {
	return n.SampledAt != NotSampled
}

// Copy duplicates the node without its parent or children. The cell is
// shared; pruned and simplified views reference the same cells as the
// full tree.
func (n *Node) Copy() *Node {
	dup := *n
	dup.Parent = nil
	dup.Children = nil
	return &dup
}

// Label is the Newick node label: clone, cell, location, generation.
func (n *Node) Label() string {
	return fmt.Sprintf("%d_%d_%s_%d", n.CloneID, n.Cell.ID, n.Cell.Location, n.Generation)
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}
