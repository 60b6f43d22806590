package bptree

import "golang.org/x/exp/slices"

// Levels returns the keys of every node, level by level from the root down
// to the leaves. Level 0 is the root. Intended for debugging and for tests
// that assert on tree shape.
func (t *Tree) Levels() [][][]int64 {
	level := []node{t.root}
	var out [][][]int64
	for len(level) > 0 {
		var keys [][]int64
		var next []node
		for _, n := range level {
			switch v := n.(type) {
			case *leafNode:
				keys = append(keys, slices.Clone(v.keys))
			case *internalNode:
				keys = append(keys, slices.Clone(v.keys))
				next = append(next, v.children...)
			}
		}
		out = append(out, keys)
		level = next
	}
	return out
}

// Leaves walks the leaf chain from the leftmost leaf and returns each leaf's
// keys in chain order. Concatenated, the result is the global key order.
func (t *Tree) Leaves() [][]int64 {
	n := t.root
	for {
		in, ok := n.(*internalNode)
		if !ok {
			break
		}
		n = in.children[0]
	}
	var out [][]int64
	for leaf := n.(*leafNode); leaf != nil; leaf = leaf.next {
		out = append(out, slices.Clone(leaf.keys))
	}
	return out
}
