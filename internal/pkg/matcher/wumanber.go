package matcher

import (
	"github.com/endorses/stringmatch/internal/pkg/pattern"
	"github.com/endorses/stringmatch/internal/pkg/wumanber"
)

type wuManberMatcher struct {
	opts    Options
	builder *wumanber.Builder
	m       *wumanber.Matcher
}

func newWuManberMatcher(opts Options) *wuManberMatcher {
	w := &wuManberMatcher{opts: opts}
	w.Reset()
	return w
}

func (w *wuManberMatcher) Kind() Kind       { return KindWuManber }
func (w *wuManberMatcher) Options() Options { return w.opts }
func (w *wuManberMatcher) IsOpen() bool     { return w.m == nil }

func (w *wuManberMatcher) PatternCount() int {
	return w.builder.Len()
}

func (w *wuManberMatcher) AddPattern(data []byte, id pattern.ID) error {
	return w.builder.Add(data, id)
}

// Finalize compiles the shift tables. Unlike the automaton backends any
// number of patterns is accepted.
func (w *wuManberMatcher) Finalize() error {
	if w.m != nil {
		return ErrClosed
	}
	w.m = w.builder.Build()
	return nil
}

func (w *wuManberMatcher) Reset() {
	w.builder = wumanber.NewBuilder(wumanber.Options{
		FoldCase:    w.opts.FoldCase,
		MaxPatterns: w.opts.MaxPatterns,
	})
	w.m = nil
}

func (w *wuManberMatcher) MatchAny(input []byte) bool {
	if w.m == nil {
		return false
	}
	return w.m.MatchAny(input)
}

// MatchFirst is not supported: the shift tables do not order matches.
func (w *wuManberMatcher) MatchFirst([]byte) (pattern.ID, error) {
	return 0, ErrUnsupported
}

func (w *wuManberMatcher) Stats() Stats {
	s := Stats{
		Kind:     KindWuManber,
		Phase:    Building,
		Patterns: w.PatternCount(),
	}
	if w.m != nil {
		s.Phase = Compiled
		s.MinLength = w.m.MinLength()
		s.BlockSize = w.m.BlockSize()
	}
	return s
}
