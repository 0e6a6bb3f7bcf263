package ahocorasick

import (
	"fmt"

	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

const (
	// DefaultCommonStates is the number of states given a full transition row.
	DefaultCommonStates = 512

	// DefaultUncommonRateLimit is the fraction of bytes consumed from
	// uncommon states above which an input is reported heavy.
	DefaultUncommonRateLimit = 0.30
)

// cellKind tells where the lookup for the next byte happens.
type cellKind uint8

const (
	// cellCommon targets a state with a row in the dense table.
	cellCommon cellKind = iota
	// cellUncommon targets a state resolved through the sparse table.
	cellUncommon
)

// cell is one transition: the target state, the table that holds the
// target's transitions and whether the target reports a match.
type cell struct {
	next  State
	kind  cellKind
	match bool
}

// TableOptions tunes the common/uncommon split of a TableMachine.
type TableOptions struct {
	// CommonStates is the number of states that get a full row.
	CommonStates int

	// UncommonRateLimit is the heavy-input threshold, see ScanResult.Heavy.
	UncommonRateLimit float64

	// ReorderMap lists every automaton state, most visited first. When set,
	// its order replaces BFS order when picking the common states.
	ReorderMap []State
}

// DefaultTableOptions returns the default split.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		CommonStates:      DefaultCommonStates,
		UncommonRateLimit: DefaultUncommonRateLimit,
	}
}

// TableMachine is the dense compiled representation. States are renumbered
// so the common ones come first; each common state owns a 256-cell row in a
// flat table and the transitions of the remaining states live in a map keyed
// by (state, byte). An uncommon state only stores the bytes on which it does
// not behave like the root; a miss falls back to the root row.
//
// Memory: 256 cells per common state plus a map entry per stored uncommon
// transition.
type TableMachine struct {
	numStates         int
	numCommon         int
	uncommonRateLimit float64
	root              State

	rootRow [256]cell
	rows    []cell
	sparse  map[uint64]cell
	outputs [][]pattern.ID
}

// NewTableMachine lowers a into a TableMachine.
func NewTableMachine(a *Automaton, opts TableOptions) (*TableMachine, error) {
	if a.Patterns() < 2 {
		return nil, ErrInsufficientPatterns
	}
	if opts.CommonStates <= 0 {
		opts.CommonStates = DefaultCommonStates
	}
	if opts.UncommonRateLimit < 0 {
		opts.UncommonRateLimit = DefaultUncommonRateLimit
	}

	n := a.NumStates()
	newID, err := rankStates(n, opts.ReorderMap)
	if err != nil {
		return nil, err
	}
	order := make([]State, n)
	for old, id := range newID {
		order[id] = State(old)
	}

	m := &TableMachine{
		numStates:         n,
		numCommon:         min(opts.CommonStates, n),
		uncommonRateLimit: opts.UncommonRateLimit,
		root:              newID[RootState],
		sparse:            make(map[uint64]cell),
		outputs:           make([][]pattern.ID, n),
	}
	for old, id := range newID {
		m.outputs[id] = a.Outputs(State(old))
	}

	target := func(old State) cell {
		id := newID[old]
		kind := cellUncommon
		if int(id) < m.numCommon {
			kind = cellCommon
		}
		return cell{next: id, kind: kind, match: a.IsMatch(old)}
	}

	var rootNext [256]State
	for b := 0; b < 256; b++ {
		rootNext[b] = a.Next(RootState, byte(b))
		m.rootRow[b] = target(rootNext[b])
	}

	m.rows = make([]cell, m.numCommon<<8)
	for id := 0; id < m.numCommon; id++ {
		old := order[id]
		for b := 0; b < 256; b++ {
			m.rows[id<<8|b] = target(a.Next(old, byte(b)))
		}
	}

	for id := m.numCommon; id < n; id++ {
		old := order[id]
		for _, b := range chainLabels(a, old) {
			next := a.Next(old, b)
			if next != rootNext[b] {
				m.sparse[sparseKey(State(id), b)] = target(next)
			}
		}
	}

	return m, nil
}

// rankStates maps every old state id to its rank in order, or to itself when
// order is nil.
func rankStates(n int, order []State) ([]State, error) {
	newID := make([]State, n)
	if order == nil {
		for i := range newID {
			newID[i] = State(i)
		}
		return newID, nil
	}

	if len(order) != n {
		return nil, fmt.Errorf("%w: %d entries for %d states", ErrMalformedReorderMap, len(order), n)
	}
	seen := make([]bool, n)
	for rank, s := range order {
		if s < 0 || int(s) >= n {
			return nil, fmt.Errorf("%w: state %d does not exist", ErrMalformedReorderMap, s)
		}
		if seen[s] {
			return nil, fmt.Errorf("%w: state %d listed twice", ErrMalformedReorderMap, s)
		}
		seen[s] = true
		newID[s] = State(rank)
	}
	return newID, nil
}

// chainLabels returns the labels of every explicit transition on the failure
// chain of s, the root excluded. Only these bytes can lead somewhere other
// than where the root leads.
func chainLabels(a *Automaton, s State) []byte {
	var seen [256]bool
	var labels []byte
	for ; s != RootState; s = a.Fail(s) {
		a.Children(s, func(b byte, _ State) {
			if !seen[b] {
				seen[b] = true
				labels = append(labels, b)
			}
		})
	}
	return labels
}

func sparseKey(s State, b byte) uint64 {
	return uint64(uint32(s))<<8 | uint64(b)
}

// NumStates returns the number of states.
func (m *TableMachine) NumStates() int {
	return m.numStates
}

// Root returns the start state.
func (m *TableMachine) Root() State {
	return m.root
}

// CommonStates returns the number of states with a dense row.
func (m *TableMachine) CommonStates() int {
	return m.numCommon
}

// SparseEntries returns the number of stored uncommon transitions.
func (m *TableMachine) SparseEntries() int {
	return len(m.sparse)
}

// UncommonRateLimit returns the heavy-input threshold.
func (m *TableMachine) UncommonRateLimit() float64 {
	return m.uncommonRateLimit
}

// IsCommon reports whether s has a dense row.
func (m *TableMachine) IsCommon(s State) bool {
	return int(s) < m.numCommon
}

// Step returns the state reached from s on b.
func (m *TableMachine) Step(s State, b byte, stats *MachineStats) State {
	c, hit := m.lookup(s, b)
	if stats != nil {
		if hit {
			stats.Gotos++
		} else {
			stats.Failures++
		}
	}
	return c.next
}

func (m *TableMachine) lookup(s State, b byte) (cell, bool) {
	if int(s) < m.numCommon {
		return m.rows[int(s)<<8|int(b)], true
	}
	if c, ok := m.sparse[sparseKey(s, b)]; ok {
		return c, true
	}
	return m.rootRow[b], false
}

// IsMatch reports whether s reports a pattern.
func (m *TableMachine) IsMatch(s State) bool {
	return len(m.outputs[s]) > 0
}

// Outputs returns the patterns reported at s.
func (m *TableMachine) Outputs(s State) []pattern.ID {
	return m.outputs[s]
}

// scan is Scan specialised for the table layout: the tag of the current cell
// selects the table without comparing state ids.
func (m *TableMachine) scan(input []byte, opts ScanOptions) ScanResult {
	start := startState(m, opts)
	cur := cell{next: start, kind: cellUncommon, match: m.IsMatch(start)}
	if m.IsCommon(start) {
		cur.kind = cellCommon
	}

	visits := opts.Visits
	if len(visits) < m.numStates {
		visits = nil
	}
	if visits != nil {
		visits[start]++
	}

	var gotos, failures, uncommon, consumed uint64
	res := ScanResult{LastRootIndex: -1}
	for i, b := range input {
		consumed++
		if cur.kind == cellCommon {
			cur = m.rows[int(cur.next)<<8|int(b)]
			gotos++
		} else {
			uncommon++
			if c, ok := m.sparse[sparseKey(cur.next, b)]; ok {
				cur = c
				gotos++
			} else {
				cur = m.rootRow[b]
				failures++
			}
		}

		if visits != nil {
			visits[cur.next]++
		}
		if cur.next == m.root {
			res.LastRootIndex = i
		}
		if cur.match && res.emit(m.outputs[cur.next], i+1, opts.Mode) {
			break
		}
	}

	res.LastState = cur.next
	if consumed > 0 {
		res.UncommonRate = float64(uncommon) / float64(consumed)
		res.Heavy = m.uncommonRateLimit > 0 && res.UncommonRate > m.uncommonRateLimit
	}
	if opts.Stats != nil {
		opts.Stats.Gotos += gotos
		opts.Stats.Failures += failures
	}
	return res
}
