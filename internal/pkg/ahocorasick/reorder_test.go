package ahocorasick

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReorderMap(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []State
		wantErr string
	}{
		{
			name:  "terminated",
			input: "2\n0\n\n1\n&\n99\n",
			want:  []State{2, 0, 1},
		},
		{
			name:  "no terminator",
			input: "1\n0\n",
			want:  []State{1, 0},
		},
		{
			name:  "surrounding whitespace",
			input: "  3 \n\t0\n&end\n",
			want:  []State{3, 0},
		},
		{
			name:  "empty",
			input: "&\n",
			want:  nil,
		},
		{
			name:    "not a number",
			input:   "1\nx\n",
			wantErr: "line 2",
		},
		{
			name:    "negative",
			input:   "-1\n",
			wantErr: "line 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReorderMap(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrMalformedReorderMap)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteReorderMap(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReorderMap(&buf, []State{2, 0, 1}))
	assert.Equal(t, "2\n0\n1\n&\n", buf.String())

	back, err := ParseReorderMap(&buf)
	require.NoError(t, err)
	assert.Equal(t, []State{2, 0, 1}, back)
}

func TestLoadReorderMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reorder.map")
	require.NoError(t, os.WriteFile(path, []byte("1\n0\n&\n"), 0o600))

	order, err := LoadReorderMap(path)
	require.NoError(t, err)
	assert.Equal(t, []State{1, 0}, order)

	_, err = LoadReorderMap(filepath.Join(t.TempDir(), "missing.map"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReorderFromVisits(t *testing.T) {
	assert.Equal(t, []State{1, 3, 0, 2}, ReorderFromVisits([]uint64{5, 9, 0, 9}))
	assert.Empty(t, ReorderFromVisits(nil))
}
