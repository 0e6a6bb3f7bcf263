package matcher

import (
	"time"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// automatonMatcher drives the trie while Building and one of the two
// runtime machines once Compiled.
type automatonMatcher struct {
	kind Kind
	opts Options

	trie     *ahocorasick.Trie
	machine  ahocorasick.Machine
	patterns int
}

func newAutomatonMatcher(kind Kind, opts Options) *automatonMatcher {
	return &automatonMatcher{
		kind: kind,
		opts: opts,
		trie: ahocorasick.NewTrie(opts.MaxPatterns),
	}
}

func (m *automatonMatcher) Kind() Kind       { return m.kind }
func (m *automatonMatcher) Options() Options { return m.opts }
func (m *automatonMatcher) IsOpen() bool     { return m.machine == nil }

func (m *automatonMatcher) PatternCount() int {
	if m.machine == nil {
		return m.trie.Len()
	}
	return m.patterns
}

func (m *automatonMatcher) AddPattern(data []byte, id pattern.ID) error {
	if m.machine != nil {
		return ErrClosed
	}
	return m.trie.Insert(data, id)
}

func (m *automatonMatcher) Finalize() error {
	if m.machine != nil {
		return ErrClosed
	}

	start := time.Now()
	a := ahocorasick.Compile(m.trie)

	var (
		machine ahocorasick.Machine
		err     error
	)
	if m.kind == KindCompressedAhoCorasick {
		machine, err = ahocorasick.NewCompressedMachine(a, ahocorasick.CompressedOptions{
			MaxGotosLE: m.opts.MaxGotosLE,
			MaxGotosBM: m.opts.MaxGotosBM,
		})
	} else {
		machine, err = ahocorasick.NewTableMachine(a, ahocorasick.TableOptions{
			CommonStates:      m.opts.CommonStates,
			UncommonRateLimit: m.opts.UncommonRateLimit,
			ReorderMap:        m.opts.ReorderMap,
		})
	}
	if err != nil {
		return err
	}

	m.machine = machine
	m.patterns = m.trie.Len()
	m.trie.Close()
	m.trie = nil

	logger.Debug("Compiled automaton",
		"kind", m.kind.String(),
		"pattern_count", m.patterns,
		"state_count", machine.NumStates(),
		"build_duration", time.Since(start))
	return nil
}

func (m *automatonMatcher) Reset() {
	m.machine = nil
	m.patterns = 0
	m.trie = ahocorasick.NewTrie(m.opts.MaxPatterns)
}

func (m *automatonMatcher) MatchAny(input []byte) bool {
	if m.machine == nil {
		return false
	}
	return ahocorasick.Scan(m.machine, input, ahocorasick.ScanOptions{Mode: ahocorasick.ModeAny}).Matched()
}

func (m *automatonMatcher) MatchFirst(input []byte) (pattern.ID, error) {
	if m.machine == nil {
		return 0, ErrNotCompiled
	}
	res := ahocorasick.Scan(m.machine, input, ahocorasick.ScanOptions{Mode: ahocorasick.ModeFirst})
	if !res.Matched() {
		return 0, ErrNoMatch
	}
	return res.Events[0].PatternID, nil
}

// Scan runs a scan with caller-chosen options.
func (m *automatonMatcher) Scan(input []byte, opts ahocorasick.ScanOptions) (ahocorasick.ScanResult, error) {
	if m.machine == nil {
		return ahocorasick.ScanResult{}, ErrNotCompiled
	}
	return ahocorasick.Scan(m.machine, input, opts), nil
}

func (m *automatonMatcher) Stats() Stats {
	s := Stats{
		Kind:     m.kind,
		Phase:    Building,
		Patterns: m.PatternCount(),
	}
	if m.machine == nil {
		return s
	}

	s.Phase = Compiled
	s.States = m.machine.NumStates()
	switch mm := m.machine.(type) {
	case *ahocorasick.TableMachine:
		s.CommonStates = mm.CommonStates()
		s.SparseEntries = mm.SparseEntries()
	case *ahocorasick.CompressedMachine:
		s.Footprint = mm.Footprint()
	}
	return s
}
