// Package classifier routes payloads to numbered outputs by matching them
// against the active pattern set.
//
// In match mode a payload goes to OutputMatched when any pattern occurs in
// it and to OutputUnmatched otherwise. In classify mode it goes to the id
// of the first pattern found, or to the length of the configured pattern
// list when none is.
package classifier

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// Match mode outputs.
const (
	OutputUnmatched = 0
	OutputMatched   = 1
)

var (
	// ErrUnknownMode is returned by ParseMode.
	ErrUnknownMode = errors.New("unknown classifier mode")

	// ErrIDOutOfRange is returned by CheckIDs for a pattern id that would
	// share an output with unmatched payloads.
	ErrIDOutOfRange = errors.New("pattern id not below the pattern count")
)

// Mode selects how payloads are routed.
type Mode int

const (
	ModeMatch Mode = iota
	ModeClassify
)

func (m Mode) String() string {
	if m == ModeClassify {
		return "classify"
	}
	return "match"
}

// ParseMode parses "match" or "classify".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "match", "":
		return ModeMatch, nil
	case "classify":
		return ModeClassify, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownMode, s)
}

// Source supplies the matcher to query and the length of the pattern list
// it was built from. *matcher.Buffered implements it, so patterns can be
// replaced while payloads are classified.
type Source interface {
	Snapshot() (matcher.Matcher, int)
}

// CheckIDs rejects pattern lists that cannot be classified: every id must
// be below the list length, which is the no-match output.
func CheckIDs(patterns []pattern.Pattern) error {
	for i, p := range patterns {
		if int(p.ID) >= len(patterns) {
			return &pattern.Error{Index: i, ID: p.ID, Err: ErrIDOutOfRange}
		}
	}
	return nil
}

// Result describes where one payload went.
type Result struct {
	Output  int
	Matched bool

	// PatternID is set in classify mode when Matched.
	PatternID pattern.ID

	// Stats and Heavy are filled for automaton backends.
	Stats ahocorasick.MachineStats
	Heavy bool
}

// Counts is a snapshot of the classifier counters.
type Counts struct {
	Count     uint64
	ByteCount uint64
	Matches   uint64
	Heavy     uint64
	Gotos     uint64
	Failures  uint64
}

// Classifier routes payloads. Push is safe for concurrent use.
type Classifier struct {
	src  Source
	mode Mode

	count     atomic.Uint64
	byteCount atomic.Uint64
	matches   atomic.Uint64
	heavy     atomic.Uint64
	gotos     atomic.Uint64
	failures  atomic.Uint64

	mu      sync.Mutex
	outputs map[int]uint64

	unsupportedOnce sync.Once
}

// New creates a classifier over src.
func New(src Source, mode Mode) *Classifier {
	return &Classifier{
		src:     src,
		mode:    mode,
		outputs: make(map[int]uint64),
	}
}

// Mode returns the routing mode.
func (c *Classifier) Mode() Mode {
	return c.mode
}

// Push matches payload and returns where it goes.
func (c *Classifier) Push(payload []byte) Result {
	m, size := c.src.Snapshot()

	var res Result
	switch {
	case m == nil:
		res.Output = c.noMatchOutput(0)
	case c.mode == ModeClassify:
		res = c.classify(m, size, payload)
	default:
		res = c.match(m, payload)
	}

	c.count.Add(1)
	c.byteCount.Add(uint64(len(payload)))
	if res.Matched {
		c.matches.Add(1)
	}
	if res.Heavy {
		c.heavy.Add(1)
	}
	c.gotos.Add(res.Stats.Gotos)
	c.failures.Add(res.Stats.Failures)

	c.mu.Lock()
	c.outputs[res.Output]++
	c.mu.Unlock()

	return res
}

func (c *Classifier) match(m matcher.Matcher, payload []byte) Result {
	var res Result
	if sc, ok := m.(matcher.Scanner); ok {
		sr, err := sc.Scan(payload, ahocorasick.ScanOptions{Mode: ahocorasick.ModeAny, Stats: &res.Stats})
		res.Matched = err == nil && sr.Matched()
		res.Heavy = sr.Heavy
	} else {
		res.Matched = m.MatchAny(payload)
	}

	res.Output = OutputUnmatched
	if res.Matched {
		res.Output = OutputMatched
	}
	return res
}

func (c *Classifier) classify(m matcher.Matcher, size int, payload []byte) Result {
	var res Result
	if sc, ok := m.(matcher.Scanner); ok {
		sr, err := sc.Scan(payload, ahocorasick.ScanOptions{Mode: ahocorasick.ModeFirst, Stats: &res.Stats})
		res.Heavy = sr.Heavy
		if err == nil && sr.Matched() {
			res.Matched = true
			res.PatternID = sr.Events[0].PatternID
			res.Output = int(res.PatternID)
			return res
		}
		res.Output = c.noMatchOutput(size)
		return res
	}

	id, err := m.MatchFirst(payload)
	switch {
	case err == nil:
		res.Matched = true
		res.PatternID = id
		res.Output = int(id)
	case errors.Is(err, matcher.ErrUnsupported):
		c.unsupportedOnce.Do(func() {
			logger.Warn("Matcher cannot classify, every payload goes to the no-match output",
				"matcher", m.Kind().String(),
				"output", size)
		})
		res.Output = c.noMatchOutput(size)
	default:
		res.Output = c.noMatchOutput(size)
	}
	return res
}

// noMatchOutput is the output of unmatched payloads. In classify mode it is
// the length of the configured list, duplicates included, so it stays clear
// of every pattern id.
func (c *Classifier) noMatchOutput(size int) int {
	if c.mode == ModeMatch {
		return OutputUnmatched
	}
	return size
}

// NumOutputs returns the number of outputs of the current configuration.
func (c *Classifier) NumOutputs() int {
	if c.mode == ModeMatch {
		return 2
	}
	_, size := c.src.Snapshot()
	return size + 1
}

// Matches returns the number of payloads in which a pattern was found.
func (c *Classifier) Matches() uint64 {
	return c.matches.Load()
}

// Counts returns a snapshot of the counters.
func (c *Classifier) Counts() Counts {
	return Counts{
		Count:     c.count.Load(),
		ByteCount: c.byteCount.Load(),
		Matches:   c.matches.Load(),
		Heavy:     c.heavy.Load(),
		Gotos:     c.gotos.Load(),
		Failures:  c.failures.Load(),
	}
}

// Outputs returns how many payloads went to each output.
func (c *Classifier) Outputs() map[int]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int]uint64, len(c.outputs))
	for k, v := range c.outputs {
		out[k] = v
	}
	return out
}

// ResetCounts zeroes every counter.
func (c *Classifier) ResetCounts() {
	c.count.Store(0)
	c.byteCount.Store(0)
	c.matches.Store(0)
	c.heavy.Store(0)
	c.gotos.Store(0)
	c.failures.Store(0)

	c.mu.Lock()
	c.outputs = make(map[int]uint64)
	c.mu.Unlock()
}
