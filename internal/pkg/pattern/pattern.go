// Package pattern holds the types, limits and errors shared by every matcher
// backend: what a pattern is, which patterns are acceptable and how a
// rejected pattern is reported back to the caller.
package pattern

import (
	"errors"
	"fmt"
)

// ID is the caller-assigned identifier of a pattern. It is reported back on a
// first-match query and must be unique within one matcher instance.
type ID uint32

// MaxLength is the longest accepted pattern. Offsets into a pattern are kept
// 16-bit safe.
const MaxLength = 1<<16 - 1

// DefaultMaxPatterns bounds the number of patterns one matcher accepts.
const DefaultMaxPatterns = 1 << 20

var (
	// ErrDuplicatePattern is returned when the identical byte sequence was
	// already added. The identifier is not considered.
	ErrDuplicatePattern = errors.New("duplicate pattern")

	// ErrZeroLengthPattern is returned for an empty pattern.
	ErrZeroLengthPattern = errors.New("zero length pattern")

	// ErrPatternTooLong is returned for patterns longer than MaxLength.
	ErrPatternTooLong = errors.New("pattern too long")

	// ErrClosed is returned when a pattern is added after compilation.
	ErrClosed = errors.New("matcher is closed")

	// ErrTooManyPatterns is returned when the matcher's pattern limit is reached.
	ErrTooManyPatterns = errors.New("too many patterns")
)

// Pattern is a literal byte sequence with its identifier.
type Pattern struct {
	ID   ID
	Data []byte
}

// New copies data so later changes by the caller do not leak into a matcher.
func New(id ID, data []byte) Pattern {
	return Pattern{ID: id, Data: append([]byte(nil), data...)}
}

// FromStrings builds patterns whose identifiers are their indexes.
func FromStrings(texts ...string) []Pattern {
	patterns := make([]Pattern, len(texts))
	for i, text := range texts {
		patterns[i] = Pattern{ID: ID(i), Data: []byte(text)}
	}
	return patterns
}

// Validate reports the structural problems of a single pattern: zero length
// or exceeding MaxLength. Duplicates depend on matcher state and are not
// checked here.
func Validate(data []byte) error {
	if len(data) == 0 {
		return ErrZeroLengthPattern
	}
	if len(data) > MaxLength {
		return ErrPatternTooLong
	}
	return nil
}

// IsStructural reports whether err rejects a pattern on its own merits, as
// opposed to a duplicate which is only a warning.
func IsStructural(err error) bool {
	return errors.Is(err, ErrZeroLengthPattern) ||
		errors.Is(err, ErrPatternTooLong) ||
		errors.Is(err, ErrTooManyPatterns)
}

// Error attaches the position and identifier of a rejected pattern.
type Error struct {
	Index int
	ID    ID
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pattern #%d (id %d): %v", e.Index, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
