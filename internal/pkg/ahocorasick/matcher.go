// Package ahocorasick provides an implementation of the Aho-Corasick string matching algorithm.
// The Aho-Corasick algorithm allows matching multiple patterns simultaneously against an input
// in O(n + m + z) time, where n is the input length, m is the total pattern length,
// and z is the number of matches.
//
// Patterns are inserted into a Trie, compiled into an Automaton (goto, failure and output
// functions) and then lowered into one of two read-only runtime machines:
//
//   - TableMachine keeps a full 256-entry row for the "common" states and a hashed
//     (state, byte) table for the rest.
//   - CompressedMachine keeps a bounded list of explicit transitions per state and
//     falls back to failure links for every other byte.
//
// Both machines are driven by Scan and are safe for concurrent scans once built.
package ahocorasick

import (
	"errors"

	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// State identifies an automaton state.
type State int32

// RootState is the root of every trie and of an automaton in BFS order.
const RootState State = 0

var (
	// ErrInsufficientPatterns is returned when a machine is built from fewer
	// than two patterns. Both compiled back ends are only valid for two or more.
	ErrInsufficientPatterns = errors.New("at least two patterns are required")

	// ErrMalformedReorderMap is returned when a reorder map is not a
	// permutation of the automaton's states.
	ErrMalformedReorderMap = errors.New("malformed reorder map")
)

// Machine is a compiled, read-only automaton.
type Machine interface {
	// NumStates returns the number of states.
	NumStates() int

	// Root returns the start state.
	Root() State

	// Step returns the state reached from s on b. Transitions and failure
	// links taken are added to stats when it is not nil.
	Step(s State, b byte, stats *MachineStats) State

	// IsMatch reports whether s terminates at least one pattern.
	IsMatch(s State) bool

	// Outputs returns the patterns reported at s, own pattern first.
	// The returned slice must not be modified.
	Outputs(s State) []pattern.ID
}

// MatchEvent is a pattern occurrence ending at End (exclusive offset).
type MatchEvent struct {
	PatternID pattern.ID
	End       int
}
