package pattern

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrZeroLengthPattern},
		{"single byte", []byte{0}, nil},
		{"max length", bytes.Repeat([]byte("a"), MaxLength), nil},
		{"too long", bytes.Repeat([]byte("a"), MaxLength+1), ErrPatternTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.data)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewCopiesData(t *testing.T) {
	data := []byte("abc")
	p := New(7, data)
	data[0] = 'x'

	assert.Equal(t, ID(7), p.ID)
	assert.Equal(t, []byte("abc"), p.Data)
}

func TestFromStrings(t *testing.T) {
	patterns := FromStrings("cat", "dog")
	require.Len(t, patterns, 2)
	assert.Equal(t, ID(0), patterns[0].ID)
	assert.Equal(t, ID(1), patterns[1].ID)
	assert.Equal(t, []byte("dog"), patterns[1].Data)
}

func TestError(t *testing.T) {
	err := error(&Error{Index: 3, ID: 42, Err: ErrZeroLengthPattern})

	assert.ErrorIs(t, err, ErrZeroLengthPattern)
	assert.Equal(t, "pattern #3 (id 42): zero length pattern", err.Error())

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Index)
}

func TestIsStructural(t *testing.T) {
	assert.True(t, IsStructural(ErrZeroLengthPattern))
	assert.True(t, IsStructural(&Error{Err: ErrPatternTooLong}))
	assert.True(t, IsStructural(ErrTooManyPatterns))
	assert.False(t, IsStructural(ErrDuplicatePattern))
	assert.False(t, IsStructural(ErrClosed))
	assert.False(t, IsStructural(nil))
}
