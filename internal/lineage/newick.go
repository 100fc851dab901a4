package lineage

import (
	"strconv"
	"strings"
)

// WriteNewick serializes the tree rooted at root into the parenthesized
// bracket format: (children)label:branch. When timeTree is set the
// branch length is the elapsed generation count since the last retained
// ancestor instead of the mutation distance. The output is wrapped in an
// outer pair of parentheses and terminated with a semicolon, forming a
// complete tree record.
func WriteNewick(root *Node, timeTree bool) string {
	var b strings.Builder
	b.WriteByte('(')

	type frame struct {
		node *Node
		next int
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		children := f.node.Children
		if len(children) > 0 && f.next == 0 {
			b.WriteByte('(')
		}
		if f.next < len(children) {
			if f.next > 0 {
				b.WriteByte(',')
			}
			child := children[f.next]
			f.next++
			stack = append(stack, frame{node: child})
			continue
		}
		if len(children) > 0 {
			b.WriteByte(')')
		}
		b.WriteString(f.node.Label())
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(branchLength(f.node, timeTree)))
		stack = stack[:len(stack)-1]
	}

	b.WriteString(");")
	return b.String()
}

func branchLength(n *Node, timeTree bool) int {
	if !timeTree {
		return n.HeavyMutations + n.LightMutations
	}
	// Simplified trees carry the collapsed generation count; in an
	// unsimplified tree every edge spans exactly one generation.
	if n.TimeSinceSplit > 0 {
		return n.TimeSinceSplit
	}
	return 1
}
