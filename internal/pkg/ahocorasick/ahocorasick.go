package ahocorasick

import (
	"math"
	"slices"

	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// edge is an explicit trie transition.
type edge struct {
	label byte
	to    State
}

// node is a trie node. Nodes live in an arena and refer to each other by index.
type node struct {
	// edges holds the explicit children sorted by label.
	edges []edge

	// fail is the failure-link target, set by Compile.
	fail State

	depth int32

	// match is set when a pattern ends here; id is that pattern.
	match bool
	id    pattern.ID

	// output is the union of this node's pattern and those reachable
	// through the failure chain, own pattern first. Set by Compile.
	output []pattern.ID

	// hasFailInto is set when some other node fails into this one.
	hasFailInto bool
}

func (n *node) child(b byte) (State, bool) {
	i, ok := slices.BinarySearchFunc(n.edges, b, func(e edge, b byte) int {
		return int(e.label) - int(b)
	})
	if !ok {
		return 0, false
	}
	return n.edges[i].to, true
}

func (n *node) addChild(b byte, to State) {
	i, _ := slices.BinarySearchFunc(n.edges, b, func(e edge, b byte) int {
		return int(e.label) - int(b)
	})
	n.edges = slices.Insert(n.edges, i, edge{label: b, to: to})
}

// Trie is the uncompiled pattern store. Node 0 is the root.
//
// A Trie is not safe for concurrent use.
type Trie struct {
	nodes       []node
	patterns    int
	maxPatterns int
	closed      bool
}

// NewTrie creates an empty trie that accepts at most maxPatterns patterns.
// A non-positive limit selects pattern.DefaultMaxPatterns.
func NewTrie(maxPatterns int) *Trie {
	if maxPatterns <= 0 {
		maxPatterns = pattern.DefaultMaxPatterns
	}
	return &Trie{
		nodes:       []node{{}},
		maxPatterns: maxPatterns,
	}
}

// Insert adds a pattern, extending the trie byte by byte. A duplicate byte
// sequence is rejected with pattern.ErrDuplicatePattern and leaves the trie
// unchanged.
func (t *Trie) Insert(data []byte, id pattern.ID) error {
	if t.closed {
		return pattern.ErrClosed
	}
	if err := pattern.Validate(data); err != nil {
		return err
	}
	if s, ok := t.lookup(data); ok && t.nodes[s].match {
		return pattern.ErrDuplicatePattern
	}
	if t.patterns >= t.maxPatterns || len(t.nodes)+len(data) > math.MaxInt32 {
		return pattern.ErrTooManyPatterns
	}

	cur := RootState
	for _, b := range data {
		next, ok := t.nodes[cur].child(b)
		if !ok {
			next = State(len(t.nodes))
			t.nodes = append(t.nodes, node{depth: t.nodes[cur].depth + 1})
			t.nodes[cur].addChild(b, next)
		}
		cur = next
	}

	t.nodes[cur].match = true
	t.nodes[cur].id = id
	t.patterns++
	return nil
}

// lookup walks the explicit path for data.
func (t *Trie) lookup(data []byte) (State, bool) {
	cur := RootState
	for _, b := range data {
		next, ok := t.nodes[cur].child(b)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// Contains reports whether the exact byte sequence was inserted.
func (t *Trie) Contains(data []byte) bool {
	s, ok := t.lookup(data)
	return ok && t.nodes[s].match
}

// Len returns the number of inserted patterns.
func (t *Trie) Len() int {
	return t.patterns
}

// Size returns the number of trie nodes, root included.
func (t *Trie) Size() int {
	return len(t.nodes)
}

// Close rejects further inserts.
func (t *Trie) Close() {
	t.closed = true
}

// Closed reports whether Close was called.
func (t *Trie) Closed() bool {
	return t.closed
}
