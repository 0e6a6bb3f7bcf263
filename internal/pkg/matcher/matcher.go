// Package matcher is the entry point to the string matching backends. A
// Matcher collects literal patterns while Building, is compiled once by
// Finalize and then answers MatchAny and MatchFirst queries concurrently.
//
// Three backends sit behind the same interface, selected by Kind: the
// Aho-Corasick automaton lowered to either the dense table machine or the
// row-compressed machine, and the Wu-Manber shift matcher.
//
// Construction (AddPattern, Finalize, Reset) is not safe for concurrent use.
// Use Buffered to replace the patterns of a matcher that is being queried.
package matcher

import (
	"fmt"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// Phase is the lifecycle state of a Matcher.
type Phase int

const (
	// Building accepts patterns.
	Building Phase = iota
	// Compiled answers queries and rejects patterns with ErrClosed.
	Compiled
)

func (p Phase) String() string {
	if p == Compiled {
		return "compiled"
	}
	return "building"
}

// Options tunes the backends. Fields that do not apply to the selected
// Kind are ignored.
type Options struct {
	// MaxPatterns bounds the number of patterns, zero for the default.
	MaxPatterns int

	// CommonStates, UncommonRateLimit and ReorderMap configure the dense
	// table machine of KindAhoCorasick.
	CommonStates      int
	UncommonRateLimit float64
	ReorderMap        []ahocorasick.State

	// MaxGotosLE and MaxGotosBM configure KindCompressedAhoCorasick.
	MaxGotosLE int
	MaxGotosBM int

	// FoldCase makes KindWuManber ASCII case-insensitive.
	FoldCase bool
}

// DefaultOptions returns the defaults of every backend.
func DefaultOptions() Options {
	return Options{
		MaxPatterns:       pattern.DefaultMaxPatterns,
		CommonStates:      ahocorasick.DefaultCommonStates,
		UncommonRateLimit: ahocorasick.DefaultUncommonRateLimit,
		MaxGotosLE:        ahocorasick.DefaultMaxGotosLE,
		MaxGotosBM:        ahocorasick.DefaultMaxGotosBM,
		FoldCase:          true,
	}
}

// Stats describes a matcher for logs and metrics.
type Stats struct {
	Kind     Kind
	Phase    Phase
	Patterns int

	// States is the number of automaton states once compiled.
	States int

	// CommonStates and SparseEntries describe the dense table machine.
	CommonStates  int
	SparseEntries int

	// Footprint describes the row-compressed machine.
	Footprint ahocorasick.Footprint

	// MinLength and BlockSize describe the Wu-Manber tables.
	MinLength int
	BlockSize int
}

// Matcher is a multi-pattern matcher.
type Matcher interface {
	// Kind returns the backend.
	Kind() Kind

	// Options returns the options the matcher was created with.
	Options() Options

	// AddPattern adds a literal pattern while Building. It returns
	// ErrDuplicatePattern, ErrZeroLengthPattern, ErrPatternTooLong,
	// ErrTooManyPatterns or, once compiled, ErrClosed. A rejected pattern
	// leaves the matcher unchanged.
	AddPattern(data []byte, id pattern.ID) error

	// Finalize compiles the patterns. The automaton backends need at least
	// two patterns and fail with ErrInsufficientPatterns otherwise, leaving
	// the matcher Building.
	Finalize() error

	// Reset discards all patterns and compiled state and returns to
	// Building. It must not run concurrently with queries.
	Reset()

	// MatchAny reports whether any pattern occurs in input. It is false
	// before Finalize.
	MatchAny(input []byte) bool

	// MatchFirst returns the id of the first pattern found: the one whose
	// occurrence ends first, the longest of those ending at the same byte.
	// It returns ErrNoMatch, ErrNotCompiled or, for KindWuManber,
	// ErrUnsupported.
	MatchFirst(input []byte) (pattern.ID, error)

	// IsOpen reports whether the matcher is Building.
	IsOpen() bool

	// PatternCount returns the number of patterns added.
	PatternCount() int

	// Stats returns a snapshot of the matcher's shape.
	Stats() Stats
}

// Scanner is implemented by the automaton backends, whose scans report
// transition counts, heavy inputs and state visits.
type Scanner interface {
	Scan(input []byte, opts ahocorasick.ScanOptions) (ahocorasick.ScanResult, error)
}

// New creates an empty matcher of the given kind.
func New(kind Kind, opts Options) (Matcher, error) {
	switch kind {
	case KindAhoCorasick, KindCompressedAhoCorasick:
		return newAutomatonMatcher(kind, opts), nil
	case KindWuManber:
		return newWuManberMatcher(opts), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}
