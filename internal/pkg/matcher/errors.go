package matcher

import (
	"errors"
	"fmt"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// Pattern-level errors, returned by AddPattern.
var (
	ErrDuplicatePattern  = pattern.ErrDuplicatePattern
	ErrZeroLengthPattern = pattern.ErrZeroLengthPattern
	ErrPatternTooLong    = pattern.ErrPatternTooLong
	ErrClosed            = pattern.ErrClosed
	ErrTooManyPatterns   = pattern.ErrTooManyPatterns
)

// Compilation errors, returned by Finalize.
var (
	ErrInsufficientPatterns = ahocorasick.ErrInsufficientPatterns
	ErrMalformedReorderMap  = ahocorasick.ErrMalformedReorderMap
)

var (
	// ErrNoMatch is the first-match result when no pattern occurs.
	ErrNoMatch = errors.New("no match")

	// ErrNotCompiled is returned by queries that need a finalized matcher.
	ErrNotCompiled = errors.New("matcher is not compiled")

	// ErrUnsupported is returned by MatchFirst on backends that cannot rank
	// matches.
	ErrUnsupported = fmt.Errorf("first match query: %w", errors.ErrUnsupported)
)

// PatternError identifies the rejected pattern of a batch.
type PatternError = pattern.Error
