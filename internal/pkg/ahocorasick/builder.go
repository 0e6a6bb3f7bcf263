package ahocorasick

import (
	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// Automaton is a compiled trie: states renumbered in BFS order with failure
// links and merged outputs. Its goto function is complete over all 256 byte
// values (see Next). An Automaton is read-only and is the input of the
// runtime machines.
type Automaton struct {
	nodes    []node
	patterns int
}

// Compile builds the automaton for t. The build has two phases:
//  1. Renumbering: states are visited breadth first, children in byte order,
//     so shallow states get the lowest ids.
//  2. Failure links: for v = goto(u, b) the failure link is the state reached
//     on b from fail(u), the root being total. Outputs of the failure target
//     are appended to v's own.
//
// The trie itself is left untouched so a failed lowering can be retried.
func Compile(t *Trie) *Automaton {
	a := &Automaton{
		nodes:    renumber(t.nodes),
		patterns: t.patterns,
	}
	a.computeFailureLinks()
	return a
}

// renumber copies the nodes in BFS order and remaps the edges.
func renumber(src []node) []node {
	order := make([]State, 0, len(src))
	order = append(order, RootState)
	for i := 0; i < len(order); i++ {
		for _, e := range src[order[i]].edges {
			order = append(order, e.to)
		}
	}

	newID := make([]State, len(src))
	for i, old := range order {
		newID[old] = State(i)
	}

	dst := make([]node, len(order))
	for i, old := range order {
		n := src[old]
		edges := make([]edge, len(n.edges))
		for j, e := range n.edges {
			edges[j] = edge{label: e.label, to: newID[e.to]}
		}
		dst[i] = node{
			edges: edges,
			depth: n.depth,
			match: n.match,
			id:    n.id,
		}
	}
	return dst
}

// computeFailureLinks walks the states in id order, which is BFS order. A
// failure target is always shallower than the state failing into it, so its
// link and outputs are final by the time they are read.
func (a *Automaton) computeFailureLinks() {
	for u := range a.nodes {
		cur := &a.nodes[u]
		for _, e := range cur.edges {
			v := &a.nodes[e.to]
			fail := RootState
			if State(u) != RootState {
				fail = a.Next(cur.fail, e.label)
			}
			v.fail = fail
			a.nodes[fail].hasFailInto = true

			inherited := a.nodes[fail].output
			if v.match {
				v.output = make([]pattern.ID, 0, len(inherited)+1)
				v.output = append(v.output, v.id)
				v.output = append(v.output, inherited...)
			} else {
				// Shared with the failure target, never written.
				v.output = inherited
			}
		}
	}
}

// Next is the complete goto function: the explicit child if any, otherwise
// the failure chain is followed. The root maps missing bytes to itself.
func (a *Automaton) Next(s State, b byte) State {
	for {
		if next, ok := a.nodes[s].child(b); ok {
			return next
		}
		if s == RootState {
			return RootState
		}
		s = a.nodes[s].fail
	}
}

// NumStates returns the number of states.
func (a *Automaton) NumStates() int {
	return len(a.nodes)
}

// Patterns returns the number of patterns compiled in.
func (a *Automaton) Patterns() int {
	return a.patterns
}

// Fail returns the failure link of s.
func (a *Automaton) Fail(s State) State {
	return a.nodes[s].fail
}

// Depth returns the length of the path from the root to s.
func (a *Automaton) Depth(s State) int {
	return int(a.nodes[s].depth)
}

// IsMatch reports whether any pattern is reported at s.
func (a *Automaton) IsMatch(s State) bool {
	return len(a.nodes[s].output) > 0
}

// Outputs returns the patterns reported at s, own pattern first.
func (a *Automaton) Outputs(s State) []pattern.ID {
	return a.nodes[s].output
}

// HasFailInto reports whether some state fails into s.
func (a *Automaton) HasFailInto(s State) bool {
	return a.nodes[s].hasFailInto
}

// Children calls fn for every explicit transition of s in byte order.
func (a *Automaton) Children(s State, fn func(b byte, to State)) {
	for _, e := range a.nodes[s].edges {
		fn(e.label, e.to)
	}
}

// OutDegree returns the number of explicit transitions of s.
func (a *Automaton) OutDegree(s State) int {
	return len(a.nodes[s].edges)
}
