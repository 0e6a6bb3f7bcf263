package matcher

import (
	"errors"
	"fmt"

	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// Validate checks a batch on a scratch matcher of the given kind. The first
// pattern that is zero length, too long or over the pattern limit fails the
// whole batch. Duplicates within the batch are only warnings.
func Validate(kind Kind, opts Options, patterns []pattern.Pattern) error {
	scratch, err := New(kind, opts)
	if err != nil {
		return err
	}
	for i, p := range patterns {
		err := scratch.AddPattern(p.Data, p.ID)
		if pattern.IsStructural(err) {
			return &PatternError{Index: i, ID: p.ID, Err: err}
		}
	}
	return nil
}

// Configure replaces the patterns of m with patterns and compiles it. The
// batch is validated first, so on a structural error m is left untouched.
// Patterns duplicating an earlier one are skipped, logged and returned as
// warnings.
func Configure(m Matcher, patterns []pattern.Pattern) (warnings []*PatternError, err error) {
	if err := Validate(m.Kind(), m.Options(), patterns); err != nil {
		return nil, err
	}

	m.Reset()
	for i, p := range patterns {
		err := m.AddPattern(p.Data, p.ID)
		switch {
		case err == nil:
		case errors.Is(err, ErrDuplicatePattern):
			logger.Warn("Skipping duplicate pattern", "index", i, "pattern_id", p.ID)
			warnings = append(warnings, &PatternError{Index: i, ID: p.ID, Err: err})
		default:
			return warnings, &PatternError{Index: i, ID: p.ID, Err: err}
		}
	}

	if err := m.Finalize(); err != nil {
		return warnings, fmt.Errorf("failed to compile %s matcher: %w", m.Kind(), err)
	}
	return warnings, nil
}

// Build creates, fills and compiles a matcher in one step.
func Build(kind Kind, opts Options, patterns []pattern.Pattern) (Matcher, []*PatternError, error) {
	m, err := New(kind, opts)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := Configure(m, patterns)
	if err != nil {
		return nil, warnings, err
	}
	return m, warnings, nil
}
