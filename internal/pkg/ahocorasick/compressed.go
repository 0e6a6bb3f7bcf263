package ahocorasick

import (
	"math/bits"

	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

const (
	// DefaultMaxGotosLE caps the linear list used by deep states.
	DefaultMaxGotosLE = 4

	// DefaultMaxGotosBM caps the bitmap encoding used near the root.
	DefaultMaxGotosBM = 64

	// shallowDepth is the deepest level that always uses the bitmap encoding.
	shallowDepth = 2
)

// CompressedOptions bounds the explicit transitions kept per state.
type CompressedOptions struct {
	// MaxGotosLE is the most transitions a deep state keeps as a linear list.
	MaxGotosLE int

	// MaxGotosBM is the most transitions kept behind a 256-bit bitmap.
	// States with more get a full lookup row.
	MaxGotosBM int
}

// DefaultCompressedOptions returns the default caps.
func DefaultCompressedOptions() CompressedOptions {
	return CompressedOptions{
		MaxGotosLE: DefaultMaxGotosLE,
		MaxGotosBM: DefaultMaxGotosBM,
	}
}

type encoding uint8

const (
	encodingLinear encoding = iota
	encodingBitmap
	encodingTable
)

func (o CompressedOptions) encodingFor(depth, degree int) encoding {
	switch {
	case degree <= o.MaxGotosLE && depth > shallowDepth:
		return encodingLinear
	case degree <= o.MaxGotosBM:
		return encodingBitmap
	default:
		return encodingTable
	}
}

// cstate is a state of a CompressedMachine. targets is the offset of its
// explicit targets; aux indexes labels (linear), bitmaps (bitmap) or rows of
// tables (table).
type cstate struct {
	fail    State
	targets int32
	aux     int32
	degree  int32
	enc     encoding
}

// Footprint counts the states per encoding.
type Footprint struct {
	Linear   int
	Bitmap   int
	Table    int
	Explicit int
}

// CompressedMachine is the memory-lean compiled representation. Only trie
// transitions are stored; every other byte follows the failure chain until a
// state has an explicit transition or the root, whose row is total.
type CompressedMachine struct {
	states   []cstate
	rootNext [256]State
	labels   []byte
	targets  []State
	bitmaps  [][4]uint64
	tables   []State
	outputs  [][]pattern.ID

	footprint Footprint
}

// NewCompressedMachine lowers a into a CompressedMachine.
func NewCompressedMachine(a *Automaton, opts CompressedOptions) (*CompressedMachine, error) {
	if a.Patterns() < 2 {
		return nil, ErrInsufficientPatterns
	}
	if opts.MaxGotosLE <= 0 {
		opts.MaxGotosLE = DefaultMaxGotosLE
	}
	if opts.MaxGotosBM <= 0 {
		opts.MaxGotosBM = DefaultMaxGotosBM
	}
	opts.MaxGotosBM = min(opts.MaxGotosBM, 256)

	n := a.NumStates()
	m := &CompressedMachine{
		states:  make([]cstate, n),
		outputs: make([][]pattern.ID, n),
	}
	for b := 0; b < 256; b++ {
		m.rootNext[b] = a.Next(RootState, byte(b))
	}

	for s := State(0); int(s) < n; s++ {
		m.outputs[s] = a.Outputs(s)
		if s == RootState {
			continue
		}

		degree := a.OutDegree(s)
		st := &m.states[s]
		st.fail = a.Fail(s)
		st.degree = int32(degree)
		st.targets = int32(len(m.targets))
		st.enc = opts.encodingFor(a.Depth(s), degree)
		m.footprint.Explicit += degree

		switch st.enc {
		case encodingLinear:
			st.aux = int32(len(m.labels))
			a.Children(s, func(b byte, to State) {
				m.labels = append(m.labels, b)
				m.targets = append(m.targets, to)
			})
			m.footprint.Linear++

		case encodingBitmap:
			// Children come in byte order, so append order is rank order.
			var bm [4]uint64
			a.Children(s, func(b byte, to State) {
				bm[b>>6] |= 1 << (b & 63)
				m.targets = append(m.targets, to)
			})
			st.aux = int32(len(m.bitmaps))
			m.bitmaps = append(m.bitmaps, bm)
			m.footprint.Bitmap++

		case encodingTable:
			st.aux = int32(len(m.tables) >> 8)
			row := make([]State, 256)
			for i := range row {
				row[i] = -1
			}
			a.Children(s, func(b byte, to State) {
				row[b] = to
			})
			m.tables = append(m.tables, row...)
			m.footprint.Table++
		}
	}

	return m, nil
}

// explicit looks up a stored transition of a non-root state.
func (m *CompressedMachine) explicit(s State, b byte) (State, bool) {
	st := &m.states[s]
	switch st.enc {
	case encodingLinear:
		labels := m.labels[st.aux : st.aux+st.degree]
		for i, l := range labels {
			if l == b {
				return m.targets[st.targets+int32(i)], true
			}
		}
		return 0, false

	case encodingBitmap:
		bm := &m.bitmaps[st.aux]
		word := b >> 6
		bit := uint64(1) << (b & 63)
		if bm[word]&bit == 0 {
			return 0, false
		}
		rank := bits.OnesCount64(bm[word] & (bit - 1))
		for w := byte(0); w < word; w++ {
			rank += bits.OnesCount64(bm[w])
		}
		return m.targets[st.targets+int32(rank)], true

	default:
		next := m.tables[int(st.aux)<<8|int(b)]
		return next, next >= 0
	}
}

// Step returns the state reached from s on b.
func (m *CompressedMachine) Step(s State, b byte, stats *MachineStats) State {
	var failures uint64
	for s != RootState {
		if next, ok := m.explicit(s, b); ok {
			if stats != nil {
				stats.Gotos++
				stats.Failures += failures
			}
			return next
		}
		failures++
		s = m.states[s].fail
	}
	if stats != nil {
		stats.Gotos++
		stats.Failures += failures
	}
	return m.rootNext[b]
}

// NumStates returns the number of states.
func (m *CompressedMachine) NumStates() int {
	return len(m.states)
}

// Root returns the start state.
func (m *CompressedMachine) Root() State {
	return RootState
}

// IsMatch reports whether s reports a pattern.
func (m *CompressedMachine) IsMatch(s State) bool {
	return len(m.outputs[s]) > 0
}

// Outputs returns the patterns reported at s.
func (m *CompressedMachine) Outputs(s State) []pattern.ID {
	return m.outputs[s]
}

// Footprint returns how the states were encoded.
func (m *CompressedMachine) Footprint() Footprint {
	return m.footprint
}
