package matcher

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
	"github.com/google/uuid"
)

// generation is one compiled pattern set.
type generation struct {
	id      uuid.UUID
	matcher Matcher
	builtAt time.Time

	// batchSize is the length of the pattern list the matcher was built
	// from, duplicates included.
	batchSize int
}

// Buffered holds a compiled matcher that can be replaced while it is being
// queried. Every update builds a fresh matcher and swaps it in atomically,
// so readers never see a matcher that is mid-build or being reset.
//
// Key features:
//   - Lock-free reads via atomic.Pointer
//   - One rebuild at a time, in the background or synchronously
//   - A failed rebuild keeps the previous generation serving
type Buffered struct {
	kind Kind
	opts Options

	// current is nil until the first successful build or after an update
	// with no patterns.
	current atomic.Pointer[generation]

	// buildMu ensures only one rebuild runs at a time.
	buildMu sync.Mutex

	building atomic.Bool

	lastBuildDuration atomic.Int64
}

// NewBuffered creates an empty Buffered for the given backend.
func NewBuffered(kind Kind, opts Options) *Buffered {
	return &Buffered{kind: kind, opts: opts}
}

// Update builds a matcher from patterns and swaps it in. Duplicate patterns
// are returned as warnings. On error the previous matcher stays active.
func (b *Buffered) Update(patterns []pattern.Pattern) ([]*PatternError, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	b.building.Store(true)
	defer b.building.Store(false)

	if len(patterns) == 0 {
		b.current.Store(nil)
		logger.Debug("Cleared matcher (no patterns)")
		return nil, nil
	}

	start := time.Now()
	m, warnings, err := Build(b.kind, b.opts, patterns)
	if err != nil {
		logger.Error("Failed to build matcher", "error", err, "kind", b.kind.String(), "pattern_count", len(patterns))
		return warnings, err
	}
	buildDuration := time.Since(start)

	gen := &generation{id: uuid.New(), matcher: m, builtAt: time.Now(), batchSize: len(patterns)}
	b.current.Store(gen)
	b.lastBuildDuration.Store(int64(buildDuration))

	stats := m.Stats()
	logger.Info("Matcher rebuilt",
		"generation", gen.id.String(),
		"kind", b.kind.String(),
		"pattern_count", stats.Patterns,
		"state_count", stats.States,
		"duplicates", len(warnings),
		"build_duration", buildDuration)
	return warnings, nil
}

// UpdateAsync runs Update in the background. The returned channel receives
// the build error, or nil, and is then closed.
func (b *Buffered) UpdateAsync(patterns []pattern.Pattern) <-chan error {
	patterns = append([]pattern.Pattern(nil), patterns...)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := b.Update(patterns)
		done <- err
	}()
	return done
}

// Current returns the active matcher, or nil.
func (b *Buffered) Current() Matcher {
	if gen := b.current.Load(); gen != nil {
		return gen.matcher
	}
	return nil
}

// Snapshot returns the active matcher together with the length of the
// pattern list it was built from, duplicates included. Both come from the
// same generation. It returns nil and 0 while no matcher is active.
func (b *Buffered) Snapshot() (Matcher, int) {
	if gen := b.current.Load(); gen != nil {
		return gen.matcher, gen.batchSize
	}
	return nil, 0
}

// Generation returns the id of the active matcher, or uuid.Nil.
func (b *Buffered) Generation() uuid.UUID {
	if gen := b.current.Load(); gen != nil {
		return gen.id
	}
	return uuid.Nil
}

// MatchAny reports whether any pattern occurs in input. It is false while
// no matcher is active.
func (b *Buffered) MatchAny(input []byte) bool {
	m := b.Current()
	return m != nil && m.MatchAny(input)
}

// MatchFirst queries the active matcher. It returns ErrNotCompiled while no
// matcher is active.
func (b *Buffered) MatchFirst(input []byte) (pattern.ID, error) {
	m := b.Current()
	if m == nil {
		return 0, ErrNotCompiled
	}
	return m.MatchFirst(input)
}

// PatternCount returns the number of patterns of the active matcher.
func (b *Buffered) PatternCount() int {
	if m := b.Current(); m != nil {
		return m.PatternCount()
	}
	return 0
}

// IsBuilding returns true if a rebuild is currently in progress.
func (b *Buffered) IsBuilding() bool {
	return b.building.Load()
}

// LastBuildTime returns when the active matcher was built.
func (b *Buffered) LastBuildTime() time.Time {
	if gen := b.current.Load(); gen != nil {
		return gen.builtAt
	}
	return time.Time{}
}

// LastBuildDuration returns how long the last successful build took.
func (b *Buffered) LastBuildDuration() time.Duration {
	return time.Duration(b.lastBuildDuration.Load())
}

// BufferedStats is a snapshot of a Buffered.
type BufferedStats struct {
	Generation        uuid.UUID
	HasMatcher        bool
	IsBuilding        bool
	LastBuildTime     time.Time
	LastBuildDuration time.Duration
	Matcher           Stats
}

// GetStats returns current statistics.
func (b *Buffered) GetStats() BufferedStats {
	s := BufferedStats{
		IsBuilding:        b.IsBuilding(),
		LastBuildDuration: b.LastBuildDuration(),
	}
	if gen := b.current.Load(); gen != nil {
		s.Generation = gen.id
		s.HasMatcher = true
		s.LastBuildTime = gen.builtAt
		s.Matcher = gen.matcher.Stats()
	}
	return s
}
