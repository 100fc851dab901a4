package lineage

// Simplify produces a topologically reduced copy of the tree: every
// chain of nodes with exactly one child is collapsed into its parent's
// outgoing edge, with mutation counts and elapsed generations
// accumulated along the way. Branch points (>=2 children) and tips are
// retained as explicit nodes. Mostly-unary lineage trees shrink by
// orders of magnitude without losing any information a phylogenetic
// analysis needs.
func Simplify(root *Node) *Node {
	newRoot := root.Copy()
	newRoot.TimeSinceSplit = 0

	type frame struct {
		orig *Node
		dup  *Node
	}
	stack := []frame{{orig: root, dup: newRoot}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range f.orig.Children {
			heavy := child.HeavyMutations
			light := child.LightMutations
			steps := 1
			end := child
			for len(end.Children) == 1 {
				end = end.Children[0]
				heavy += end.HeavyMutations
				light += end.LightMutations
				steps++
			}
			dup := end.Copy()
			dup.HeavyMutations = heavy
			dup.LightMutations = light
			dup.TimeSinceSplit = steps
			f.dup.AddChild(dup)
			stack = append(stack, frame{orig: end, dup: dup})
		}
	}
	return newRoot
}
