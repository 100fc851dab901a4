package lineage

// PruneSubtree returns a new tree containing only the minimal ancestor
// paths connecting root to every leaf whose cell identity is in keep. A
// branch with no kept descendant is dropped entirely. Returns nil when
// nothing is kept. Bottom-up over an explicit post-order stack: a
// subtree is retained only if it is itself a kept leaf or has at least
// one retained child.
func PruneSubtree(root *Node, keep map[int64]struct{}) *Node {
	type frame struct {
		node *Node
		next int
	}
	retained := make(map[*Node]*Node)
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.next < len(f.node.Children) {
			child := f.node.Children[f.next]
			f.next++
			stack = append(stack, frame{node: child})
			continue
		}

		node := f.node
		stack = stack[:len(stack)-1]

		var keptChildren []*Node
		for _, child := range node.Children {
			if dup, ok := retained[child]; ok {
				keptChildren = append(keptChildren, dup)
				delete(retained, child)
			}
		}
		if len(keptChildren) == 0 {
			if _, ok := keep[node.ID()]; !ok {
				continue
			}
			retained[node] = node.Copy()
			continue
		}
		dup := node.Copy()
		for _, child := range keptChildren {
			dup.AddChild(child)
		}
		retained[node] = dup
	}
	return retained[root]
}

// PruneUp removes a dead leaf whose lineage produced no surviving or
// sampled descendant, then walks upward removing ancestors that become
// childless, stopping at the first ancestor that still has a child, is
// sampled, is still alive, or is the root. This bounds memory during
// long runs instead of waiting for the end-of-run prune.
func PruneUp(leaf *Node) {
	n := leaf
	for n.Parent != nil && len(n.Children) == 0 && !n.Sampled() && !n.Cell.Alive {
		parent := n.Parent
		parent.removeChild(n)
		n = parent
	}
}
