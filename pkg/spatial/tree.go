// Package spatial holds a point-region tree over an axis-aligned boundary:
// a quadtree for geometry.Vector2D and an octree for geometry.Vector3D.
//
// The tree is meant to be rebuilt from scratch every simulation tick. Nodes
// live in one arena slice addressed by index, and Reset keeps that arena (and
// every node's entry buffer) so steady-state rebuilds do not allocate.
//
// A built tree is read-only: any number of goroutines may query it at the
// same time, but inserts must not run concurrently with queries.
package spatial

import (
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
)

const (
	// DefaultCapacity is the number of entries a leaf stores before it splits.
	DefaultCapacity = 1

	// MaxDepth bounds subdivision. Coincident points can never be separated
	// by splitting, so a leaf at this depth stores any number of entries.
	MaxDepth = 32
)

// Entry is one indexed point. Ref is the caller's handle, typically the
// agent's index in its population slice.
type Entry[V geometry.Vector[V]] struct {
	Ref int
	Pos V
}

type node[V geometry.Vector[V]] struct {
	bounds  geometry.Box[V]
	entries []Entry[V]
	// first is the arena index of child 0, or -1 while the node is a leaf.
	// Children are stored contiguously.
	first int
	depth int
}

// Tree is an arena-backed 2^d-ary spatial tree.
type Tree[V geometry.Vector[V]] struct {
	nodes    []node[V]
	capacity int
	fanout   int
	size     int
}

// New returns an empty tree over bounds. A capacity below 1 falls back to
// DefaultCapacity.
func New[V geometry.Vector[V]](bounds geometry.Box[V], capacity int) (*Tree[V], error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	t := &Tree[V]{capacity: capacity, fanout: bounds.Fanout()}
	t.alloc(bounds, 0)
	return t, nil
}

// Reset empties the tree and sets a new root boundary, keeping allocated memory.
func (t *Tree[V]) Reset(bounds geometry.Box[V]) {
	t.nodes = t.nodes[:0]
	t.size = 0
	t.fanout = bounds.Fanout()
	t.alloc(bounds, 0)
}

// Bounds returns the root boundary.
func (t *Tree[V]) Bounds() geometry.Box[V] {
	return t.nodes[0].bounds
}

// Capacity returns the per-leaf capacity.
func (t *Tree[V]) Capacity() int { return t.capacity }

// Len returns the number of entries stored.
func (t *Tree[V]) Len() int { return t.size }

// Nodes returns the number of nodes, leaves and internal ones.
func (t *Tree[V]) Nodes() int { return len(t.nodes) }

func (t *Tree[V]) alloc(b geometry.Box[V], depth int) int {
	i := len(t.nodes)
	if i < cap(t.nodes) {
		t.nodes = t.nodes[:i+1]
		n := &t.nodes[i]
		n.bounds = b
		n.entries = n.entries[:0]
		n.first = -1
		n.depth = depth
		return i
	}
	t.nodes = append(t.nodes, node[V]{bounds: b, first: -1, depth: depth})
	return i
}

// Insert stores ref at pos. It returns false, leaving the tree untouched, when
// pos lies outside the root boundary.
func (t *Tree[V]) Insert(ref int, pos V) bool {
	if !t.nodes[0].bounds.Contains(pos) {
		return false
	}
	t.insert(0, Entry[V]{Ref: ref, Pos: pos})
	t.size++
	return true
}

func (t *Tree[V]) insert(idx int, e Entry[V]) {
	for {
		n := &t.nodes[idx]
		if n.first < 0 {
			if len(n.entries) < t.capacity || n.depth >= MaxDepth {
				n.entries = append(n.entries, e)
				return
			}
			t.subdivide(idx)
		}
		n = &t.nodes[idx]
		idx = n.first + n.bounds.ChildIndex(e.Pos)
	}
}

// subdivide turns leaf idx into an internal node and pushes its entries down,
// so only leaves ever hold entries.
func (t *Tree[V]) subdivide(idx int) {
	b := t.nodes[idx].bounds
	depth := t.nodes[idx].depth + 1
	first := len(t.nodes)
	for k := 0; k < t.fanout; k++ {
		t.alloc(b.Child(k), depth)
	}

	n := &t.nodes[idx]
	n.first = first
	moved := n.entries
	n.entries = n.entries[:0]
	for _, e := range moved {
		t.insert(first+b.ChildIndex(e.Pos), e)
	}
}

// QueryRadius appends to dst the refs of every entry whose distance to center
// is at most r, and returns the extended slice.
func (t *Tree[V]) QueryRadius(center V, r float64, dst []int) []int {
	if r < 0 {
		return dst
	}
	return t.queryRadius(0, center, r, r*r, dst)
}

func (t *Tree[V]) queryRadius(idx int, center V, r, r2 float64, dst []int) []int {
	n := &t.nodes[idx]
	if !n.bounds.IntersectsSphere(center, r) {
		return dst
	}
	if n.first < 0 {
		for _, e := range n.entries {
			if e.Pos.DistanceSquaredTo(center) <= r2 {
				dst = append(dst, e.Ref)
			}
		}
		return dst
	}
	for k := 0; k < t.fanout; k++ {
		dst = t.queryRadius(n.first+k, center, r, r2, dst)
	}
	return dst
}

// QueryBox appends to dst the refs of every entry inside box (faces included).
func (t *Tree[V]) QueryBox(box geometry.Box[V], dst []int) []int {
	return t.queryBox(0, box, dst)
}

func (t *Tree[V]) queryBox(idx int, box geometry.Box[V], dst []int) []int {
	n := &t.nodes[idx]
	if !n.bounds.Intersects(box) {
		return dst
	}
	if n.first < 0 {
		for _, e := range n.entries {
			if box.Contains(e.Pos) {
				dst = append(dst, e.Ref)
			}
		}
		return dst
	}
	for k := 0; k < t.fanout; k++ {
		dst = t.queryBox(n.first+k, box, dst)
	}
	return dst
}

// Node is the read-only view of a tree node handed to Walk.
type Node[V geometry.Vector[V]] struct {
	Bounds  geometry.Box[V]
	Depth   int
	Leaf    bool
	Entries []Entry[V]
}

// Walk visits nodes depth first, parents before children. Returning false
// from fn skips the node's children. Entries must not be retained.
func (t *Tree[V]) Walk(fn func(Node[V]) bool) {
	t.walk(0, fn)
}

func (t *Tree[V]) walk(idx int, fn func(Node[V]) bool) {
	n := t.nodes[idx]
	if !fn(Node[V]{Bounds: n.bounds, Depth: n.depth, Leaf: n.first < 0, Entries: n.entries}) {
		return
	}
	if n.first < 0 {
		return
	}
	for k := 0; k < t.fanout; k++ {
		t.walk(n.first+k, fn)
	}
}

// Leaves appends every leaf boundary to dst.
func (t *Tree[V]) Leaves(dst []geometry.Box[V]) []geometry.Box[V] {
	t.Walk(func(n Node[V]) bool {
		if n.Leaf {
			dst = append(dst, n.Bounds)
		}
		return true
	})
	return dst
}
