package bptree

import "golang.org/x/exp/slices"

// Entry is a single key/value pair stored in the index.
// Keys are totally ordered scalars; values are opaque payloads.
type Entry struct {
	Key   int64
	Value []byte
}

// node is the capability shared by both node variants. Parent references are
// weak: lookup-only, never ownership. The tree owns its root and every
// internal node owns its children, so the ownership graph stays acyclic.
type node interface {
	parent() *internalNode
	setParent(p *internalNode)
}

// leafNode stores entries with keys strictly ascending and no duplicates.
// Leaves are chained through next so a range scan can walk the global key
// order without revisiting internal nodes.
type leafNode struct {
	keys   []int64
	values [][]byte // parallel to keys
	next   *leafNode
	par    *internalNode
}

func (l *leafNode) parent() *internalNode     { return l.par }
func (l *leafNode) setParent(p *internalNode) { l.par = p }

// insertEntry places key/value at its sorted position, replacing the value
// in place when the key already exists. It reports whether a new key was
// added. Splitting on overflow is the tree's job, not the leaf's.
func (l *leafNode) insertEntry(key int64, value []byte) bool {
	i, found := slices.BinarySearch(l.keys, key)
	if found {
		l.values[i] = value
		return false
	}
	l.keys = slices.Insert(l.keys, i, key)
	l.values = slices.Insert(l.values, i, value)
	return true
}

// internalNode holds m separator keys and m+1 children. Child 0 covers keys
// below keys[0], child i covers [keys[i-1], keys[i]), and the last child
// covers keys at or above the last separator.
type internalNode struct {
	keys     []int64
	children []node
	par      *internalNode
}

func (n *internalNode) parent() *internalNode     { return n.par }
func (n *internalNode) setParent(p *internalNode) { n.par = p }

// childFor picks the child whose interval contains key: the child index
// advances past every separator <= key.
func (n *internalNode) childFor(key int64) node {
	i := 0
	for i < len(n.keys) && key >= n.keys[i] {
		i++
	}
	return n.children[i]
}

// indexOf locates child in n's child list. The caller guarantees membership;
// -1 would mean a stale parent pointer, which the split paths never leave
// behind.
func (n *internalNode) indexOf(child node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}
