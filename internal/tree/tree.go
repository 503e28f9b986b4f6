// Package tree provides the reactive containers the in-memory board is
// built from: an insertion-ordered keyed Map, an ordered identifier-keyed
// List, and a Branch for composite interior values. Every mutation fires
// watchers synchronously on the mutating call path and bubbles a Change up
// the parent chain, so a single watcher at the root observes all mutations
// anywhere in the board.
//
// Watcher dispatch is not safe for concurrent mutation; callers serialize
// tree access (the session holds one mutex around all mutation).
package tree

import (
	"fmt"
	"strings"
)

// Op identifies the kind of mutation a Change describes.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpRemove
	OpReorder
)

func (op Op) String() string {
	switch op {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	case OpReorder:
		return "reorder"
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Change describes one mutation. Path is the dotted path of the container
// that changed; Key is the affected key within it. For OpReorder, Old and
// New hold the before/after key orderings.
type Change struct {
	Path string
	Op   Op
	Key  string
	Old  any
	New  any
}

// WatchFunc receives change records.
type WatchFunc func(Change)

// CancelFunc detaches a watcher.
type CancelFunc func()

// node is the shared plumbing: parent linkage, watchers, suppression,
// versioning. Map, List, and Branch each hold one.
type node struct {
	parent   *node
	key      string
	watchers map[string][]*watcherRecord
	suppress bool // meaningful on the root only
	version  uint64
}

type watcherRecord struct {
	fn WatchFunc
}

func newNode() *node {
	return &node{watchers: make(map[string][]*watcherRecord)}
}

func (n *node) root() *node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Path returns the dotted path from the root to this node.
func (n *node) Path() string {
	var parts []string
	for cur := n; cur != nil && cur.key != ""; cur = cur.parent {
		parts = append(parts, cur.key)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// Version returns a counter that increases on every change in this node's
// subtree, including suppressed ones. Useful for cheap dirty detection.
func (n *node) Version() uint64 {
	return n.version
}

// Watch attaches a watcher for local changes to key. Returns a cancel func.
func (n *node) Watch(key string, fn WatchFunc) CancelFunc {
	rec := &watcherRecord{fn: fn}
	n.watchers[key] = append(n.watchers[key], rec)
	return func() {
		recs := n.watchers[key]
		for i, r := range recs {
			if r == rec {
				n.watchers[key] = append(recs[:i], recs[i+1:]...)
				return
			}
		}
	}
}

// WatchAll attaches a watcher observing every change in this subtree.
func (n *node) WatchAll(fn WatchFunc) CancelFunc {
	return n.Watch("*", fn)
}

// Suppress disables watcher dispatch for changes made inside fn, across the
// whole tree this node belongs to. Versions still advance. Used by the
// loader and writer to bulk-populate or bulk-flush without consumer-facing
// reactions per node.
func (n *node) Suppress(fn func()) {
	r := n.root()
	prev := r.suppress
	r.suppress = true
	defer func() { r.suppress = prev }()
	fn()
}

func (n *node) emit(op Op, key string, old, new any) {
	for cur := n; cur != nil; cur = cur.parent {
		cur.version++
	}
	if n.root().suppress {
		return
	}
	c := Change{Path: n.Path(), Op: op, Key: key, Old: old, New: new}
	for _, rec := range n.watchers[key] {
		rec.fn(c)
	}
	// Reorders carry "*" as their key; the bucket above already served them.
	if key != "*" {
		for _, rec := range n.watchers["*"] {
			rec.fn(c)
		}
	}
	for cur := n.parent; cur != nil; cur = cur.parent {
		for _, rec := range cur.watchers["*"] {
			rec.fn(c)
		}
	}
}

// Attachable is implemented by containers and Branch so composite values
// inserted into a Map or List get wired into the parent chain.
type Attachable interface {
	treeNode() *node
}

func adopt(parent *node, key string, value any) {
	if a, ok := value.(Attachable); ok {
		child := a.treeNode()
		child.parent = parent
		child.key = key
	}
}

func orphan(value any) {
	if a, ok := value.(Attachable); ok {
		a.treeNode().parent = nil
	}
}

func rekey(value any, key string) {
	if a, ok := value.(Attachable); ok {
		a.treeNode().key = key
	}
}

// uniqueKey returns desired if unused, otherwise "desired (1)", "desired (2)", …
func uniqueKey(desired string, taken func(string) bool) string {
	if !taken(desired) {
		return desired
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", desired, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Branch is an interior tree node for composite model values (a card, a
// column). Structs embed Branch and Wire their child containers so changes
// inside them bubble through the composite to the root.
type Branch struct {
	n *node
}

func (b *Branch) ensure() *node {
	if b.n == nil {
		b.n = newNode()
	}
	return b.n
}

func (b *Branch) treeNode() *node { return b.ensure() }

// Wire attaches child under this branch with the given key.
func (b *Branch) Wire(key string, child Attachable) {
	n := child.treeNode()
	n.parent = b.ensure()
	n.key = key
}

// Path returns the dotted path from the root to this branch.
func (b *Branch) Path() string { return b.ensure().Path() }

// Watch attaches a watcher for changes bubbled to this branch under key.
func (b *Branch) Watch(key string, fn WatchFunc) CancelFunc { return b.ensure().Watch(key, fn) }

// WatchAll attaches a watcher observing every change below this branch.
func (b *Branch) WatchAll(fn WatchFunc) CancelFunc { return b.ensure().WatchAll(fn) }

// Suppress runs fn with watcher dispatch disabled for the whole tree.
func (b *Branch) Suppress(fn func()) { b.ensure().Suppress(fn) }

// Version returns the subtree change counter.
func (b *Branch) Version() uint64 { return b.ensure().Version() }
