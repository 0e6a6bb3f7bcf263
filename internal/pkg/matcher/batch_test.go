package matcher

import (
	"errors"
	"testing"

	"github.com/endorses/stringmatch/internal/pkg/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		patterns    []pattern.Pattern
		maxPatterns int
		wantErr     error
		wantIndex   int
	}{
		{
			name:     "valid",
			patterns: pattern.FromStrings("cat", "dog"),
		},
		{
			name:     "duplicates are tolerated",
			patterns: pattern.FromStrings("cat", "dog", "cat"),
		},
		{
			name:      "zero length",
			patterns:  pattern.FromStrings("cat", "", "dog"),
			wantErr:   ErrZeroLengthPattern,
			wantIndex: 1,
		},
		{
			name: "too long",
			patterns: []pattern.Pattern{
				{ID: 0, Data: []byte("cat")},
				{ID: 1, Data: []byte("dog")},
				{ID: 7, Data: make([]byte, pattern.MaxLength+1)},
			},
			wantErr:   ErrPatternTooLong,
			wantIndex: 2,
		},
		{
			name:        "duplicates do not count against the limit",
			patterns:    pattern.FromStrings("cat", "dog", "cat"),
			maxPatterns: 2,
		},
		{
			name:        "too many patterns",
			patterns:    pattern.FromStrings("cat", "dog", "cat", "bird"),
			maxPatterns: 2,
			wantErr:     ErrTooManyPatterns,
			wantIndex:   3,
		},
	}

	for _, tt := range tests {
		for _, kind := range allKinds {
			t.Run(tt.name+"/"+kind.String(), func(t *testing.T) {
				opts := caseSensitive()
				if tt.maxPatterns > 0 {
					opts.MaxPatterns = tt.maxPatterns
				}
				err := Validate(kind, opts, tt.patterns)
				if tt.wantErr == nil {
					assert.NoError(t, err)
					return
				}
				require.ErrorIs(t, err, tt.wantErr)

				var perr *PatternError
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, tt.wantIndex, perr.Index)
				assert.Equal(t, tt.patterns[tt.wantIndex].ID, perr.ID)
			})
		}
	}
}

func TestConfigure_RejectsBatchAtomically(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			m, _, err := Build(kind, caseSensitive(), pattern.FromStrings("cat", "dog"))
			require.NoError(t, err)

			_, err = Configure(m, pattern.FromStrings("bird", ""))
			require.ErrorIs(t, err, ErrZeroLengthPattern)

			assert.False(t, m.IsOpen(), "the old patterns stay compiled")
			assert.True(t, m.MatchAny([]byte("hotdog")))
			assert.False(t, m.MatchAny([]byte("bird")))
		})
	}
}

func TestConfigure_ReplacesPatterns(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			m, _, err := Build(kind, caseSensitive(), pattern.FromStrings("cat", "dog"))
			require.NoError(t, err)

			warnings, err := Configure(m, pattern.FromStrings("bird", "fish", "bird"))
			require.NoError(t, err)
			require.Len(t, warnings, 1)
			assert.Equal(t, 2, warnings[0].Index)
			assert.ErrorIs(t, warnings[0], ErrDuplicatePattern)

			assert.Equal(t, 2, m.PatternCount())
			assert.True(t, m.MatchAny([]byte("a bird")))
			assert.False(t, m.MatchAny([]byte("a cat")))
		})
	}
}

func TestConfigure_InsufficientPatterns(t *testing.T) {
	m, err := New(KindCompressedAhoCorasick, caseSensitive())
	require.NoError(t, err)

	_, err = Configure(m, pattern.FromStrings("cat", "cat"))
	assert.ErrorIs(t, err, ErrInsufficientPatterns)
	assert.True(t, m.IsOpen())
}

func TestBuild_UnknownKind(t *testing.T) {
	_, _, err := Build(Kind(7), DefaultOptions(), pattern.FromStrings("a", "b"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}
