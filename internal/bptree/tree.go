package bptree

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Tree is an in-memory B+ tree over int64 keys and opaque []byte values.
// It supports point lookup, inclusive range scans and insert-with-split.
// There is no deletion and no persistence.
//
// A Tree is single-writer: it performs no locking of its own. The shard
// runtime guarantees exclusive access by giving each worker its own Tree.
type Tree struct {
	order int
	root  node
	size  int
}

// New returns an empty tree, which starts life as a single leaf that is also
// the root. order is the maximum fan-out: a node holds at most order-1 keys
// before it must split. Orders below 3 cannot split meaningfully and are
// rejected outright rather than clamped.
func New(order int) (*Tree, error) {
	if order < 3 {
		return nil, fmt.Errorf("bptree: order must be at least 3, got %d", order)
	}
	return &Tree{order: order, root: &leafNode{}}, nil
}

// Order returns the maximum fan-out configured at construction.
func (t *Tree) Order() int { return t.order }

// Len returns the number of stored keys.
func (t *Tree) Len() int { return t.size }

// Height returns the number of node levels, counting the root.
func (t *Tree) Height() int {
	h := 1
	for n := t.root; ; h++ {
		in, ok := n.(*internalNode)
		if !ok {
			return h
		}
		n = in.children[0]
	}
}

// findLeaf descends from the root to the leaf whose interval contains key.
func (t *Tree) findLeaf(key int64) *leafNode {
	n := t.root
	for {
		switch v := n.(type) {
		case *leafNode:
			return v
		case *internalNode:
			n = v.childFor(key)
		}
	}
}

// Search returns the value stored under key. The boolean reports presence:
// a missing key is a normal outcome, not an error.
func (t *Tree) Search(key int64) ([]byte, bool) {
	leaf := t.findLeaf(key)
	if i, found := slices.BinarySearch(leaf.keys, key); found {
		return leaf.values[i], true
	}
	return nil, false
}

// RangeScan returns every entry with lo <= key <= hi in ascending key order.
// It descends once to the leaf that would hold lo and then walks the leaf
// chain, stopping at the first key above hi. lo > hi yields an empty result.
// The result is recomputed per call.
func (t *Tree) RangeScan(lo, hi int64) []Entry {
	if lo > hi {
		return nil
	}
	var out []Entry
	for leaf := t.findLeaf(lo); leaf != nil; leaf = leaf.next {
		for i, k := range leaf.keys {
			if k < lo {
				continue
			}
			if k > hi {
				return out
			}
			out = append(out, Entry{Key: k, Value: leaf.values[i]})
		}
	}
	return out
}

// Insert stores value under key. Inserting an existing key replaces its
// value with no structural change. A leaf pushed past order-1 keys is split,
// and the split may propagate up to the root; every tree invariant holds
// again by the time Insert returns.
func (t *Tree) Insert(key int64, value []byte) {
	leaf := t.findLeaf(key)
	if leaf.insertEntry(key, value) {
		t.size++
	}
	if len(leaf.keys) > t.order-1 {
		t.splitLeaf(leaf)
	}
}

// splitLeaf moves the upper half of an overflowing leaf into a fresh leaf,
// splices it into the chain right after the original, and promotes the new
// leaf's first key as the parent separator. The promoted key stays in the
// new leaf: leaves keep every stored key, internal nodes hold bare
// separators only.
func (t *Tree) splitLeaf(leaf *leafNode) {
	split := ceilHalf(t.order)

	right := &leafNode{
		keys:   slices.Clone(leaf.keys[split:]),
		values: slices.Clone(leaf.values[split:]),
	}
	leaf.keys = leaf.keys[:split]
	leaf.values = leaf.values[:split]

	right.next = leaf.next
	leaf.next = right

	t.insertInParent(leaf, right.keys[0], right)
}

// insertInParent records the separator key and the new right sibling in the
// parent of left. When propagation reaches the top (left has no parent) a
// fresh internal node with one separator and two children becomes the root.
func (t *Tree) insertInParent(left node, key int64, right node) {
	p := left.parent()
	if p == nil {
		root := &internalNode{
			keys:     []int64{key},
			children: []node{left, right},
		}
		left.setParent(root)
		right.setParent(root)
		t.root = root
		return
	}

	i, _ := slices.BinarySearch(p.keys, key)
	p.keys = slices.Insert(p.keys, i, key)
	p.children = slices.Insert(p.children, p.indexOf(left)+1, right)
	right.setParent(p)

	if len(p.keys) > t.order-1 {
		t.splitInternal(p)
	}
}

// splitInternal splits an overflowing internal node around the promotion
// index ceil(order/2)-1. Unlike a leaf split, the promoted separator is
// removed from both halves; it lives on only in the parent. Every child
// moved to the new right node is reparented before propagation continues,
// so no parent pointer is ever stale when the split returns.
func (t *Tree) splitInternal(n *internalNode) {
	p := ceilHalf(t.order) - 1
	promoted := n.keys[p]

	right := &internalNode{
		keys:     slices.Clone(n.keys[p+1:]),
		children: slices.Clone(n.children[p+1:]),
	}
	for _, c := range right.children {
		c.setParent(right)
	}

	n.keys = n.keys[:p]
	n.children = n.children[:p+1]

	t.insertInParent(n, promoted, right)
}

// ceilHalf is ceil(order/2): the leaf split index, and one past the internal
// promotion index.
func ceilHalf(order int) int { return (order + 1) / 2 }
