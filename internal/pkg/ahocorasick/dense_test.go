package ahocorasick

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableMachine_InsufficientPatterns(t *testing.T) {
	for _, texts := range [][]string{nil, {"cat"}} {
		a := Compile(buildTrie(t, texts...))
		_, err := NewTableMachine(a, DefaultTableOptions())
		assert.ErrorIs(t, err, ErrInsufficientPatterns)
	}
}

func TestTableMachine_MatchesReference(t *testing.T) {
	texts := []string{"he", "she", "his", "hers", "ushers", "s", "rs"}
	inputs := []string{"ushers", "she sells his hers", "", "xyz", "hhhhsssheee", "rsrsrs"}

	for _, common := range []int{1, 2, 5, DefaultCommonStates} {
		a := Compile(buildTrie(t, texts...))
		m, err := NewTableMachine(a, TableOptions{CommonStates: common})
		require.NoError(t, err)
		assert.Equal(t, min(common, a.NumStates()), m.CommonStates())

		for _, in := range inputs {
			got := Scan(m, []byte(in), ScanOptions{})
			assert.Equal(t, naiveEvents(texts, []byte(in)), got.Events, "common=%d input=%q", common, in)
		}
	}
}

func TestTableMachine_StepAgreesWithAutomaton(t *testing.T) {
	a := Compile(buildTrie(t, "he", "she", "his", "hers"))
	m, err := NewTableMachine(a, TableOptions{CommonStates: 3})
	require.NoError(t, err)

	for s := State(0); int(s) < a.NumStates(); s++ {
		for b := 0; b < 256; b++ {
			assert.Equal(t, a.Next(s, byte(b)), m.Step(s, byte(b), nil), "state %d byte %d", s, b)
		}
	}
}

func TestTableMachine_SparseKeepsOnlyDivergingBytes(t *testing.T) {
	a := Compile(buildTrie(t, "he", "she", "his", "hers"))
	m, err := NewTableMachine(a, TableOptions{CommonStates: 1})
	require.NoError(t, err)

	// Every uncommon entry must differ from what the root row would give.
	for s := State(1); int(s) < a.NumStates(); s++ {
		for b := 0; b < 256; b++ {
			if c, ok := m.sparse[sparseKey(s, byte(b))]; ok {
				assert.NotEqual(t, a.Next(RootState, byte(b)), c.next)
			}
		}
	}
	assert.Positive(t, m.SparseEntries())
	assert.Less(t, m.SparseEntries(), (a.NumStates()-1)*256)
}

func TestTableMachine_CellKinds(t *testing.T) {
	a := Compile(buildTrie(t, "he", "she", "his", "hers"))
	m, err := NewTableMachine(a, TableOptions{CommonStates: 2})
	require.NoError(t, err)

	assert.True(t, m.IsCommon(RootState))
	assert.True(t, m.IsCommon(1))
	assert.False(t, m.IsCommon(2))

	assert.Equal(t, cellCommon, m.rootRow['h'].kind)
	assert.Equal(t, cellUncommon, m.rootRow['s'].kind)
	assert.True(t, m.rows[1<<8|'e'].match, "h -e-> he reports a match")
}

func TestTableMachine_Heavy(t *testing.T) {
	a := Compile(buildTrie(t, "aaaa", "aaab"))
	m, err := NewTableMachine(a, TableOptions{CommonStates: 1, UncommonRateLimit: 0.30})
	require.NoError(t, err)

	tests := []struct {
		name         string
		input        string
		wantHeavy    bool
		wantRate     float64
		wantLastRoot int
		wantMatched  bool
	}{
		{
			name:         "stays below the root",
			input:        "aaaaaaaa",
			wantHeavy:    true,
			wantRate:     7.0 / 8.0,
			wantLastRoot: -1,
			wantMatched:  true,
		},
		{
			name:         "stays at the root",
			input:        "zzzz",
			wantHeavy:    false,
			wantRate:     0,
			wantLastRoot: 3,
		},
		{
			name:         "mixed",
			input:        "zzzzzzzaa",
			wantHeavy:    false,
			wantRate:     1.0 / 9.0,
			wantLastRoot: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Scan(m, []byte(tt.input), ScanOptions{})
			assert.Equal(t, tt.wantHeavy, res.Heavy)
			assert.InDelta(t, tt.wantRate, res.UncommonRate, 1e-9)
			assert.Equal(t, tt.wantLastRoot, res.LastRootIndex)
			assert.Equal(t, tt.wantMatched, res.Matched())
		})
	}
}

func TestTableMachine_ZeroLimitNeverHeavy(t *testing.T) {
	a := Compile(buildTrie(t, "aaaa", "aaab"))
	m, err := NewTableMachine(a, TableOptions{CommonStates: 1})
	require.NoError(t, err)

	res := Scan(m, []byte("aaaaaaaa"), ScanOptions{})
	assert.False(t, res.Heavy)
	assert.Positive(t, res.UncommonRate)
}

func TestTableMachine_ReorderMap(t *testing.T) {
	texts := []string{"he", "she", "his", "hers"}
	a := Compile(buildTrie(t, texts...))

	reversed := make([]State, a.NumStates())
	for i := range reversed {
		reversed[i] = State(a.NumStates() - 1 - i)
	}

	m, err := NewTableMachine(a, TableOptions{CommonStates: 2, ReorderMap: reversed})
	require.NoError(t, err)
	assert.Equal(t, State(a.NumStates()-1), m.Root())
	assert.False(t, m.IsCommon(m.Root()))

	for _, in := range []string{"ushers", "his hers", "shhe"} {
		res := Scan(m, []byte(in), ScanOptions{})
		assert.Equal(t, naiveEvents(texts, []byte(in)), res.Events, "input %q", in)
	}
}

func TestTableMachine_MalformedReorderMap(t *testing.T) {
	a := Compile(buildTrie(t, "he", "she"))
	n := a.NumStates()

	identity := make([]State, n)
	for i := range identity {
		identity[i] = State(i)
	}

	tests := []struct {
		name  string
		order []State
	}{
		{name: "too short", order: identity[:n-1]},
		{name: "too long", order: append(slices.Clone(identity), 0)},
		{name: "unknown state", order: append(slices.Clone(identity[:n-1]), State(n))},
		{name: "negative state", order: append(slices.Clone(identity[:n-1]), -1)},
		{name: "listed twice", order: append(slices.Clone(identity[:n-1]), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTableMachine(a, TableOptions{ReorderMap: tt.order})
			assert.ErrorIs(t, err, ErrMalformedReorderMap)
		})
	}
}

func TestTableMachine_ProfileRoundTrip(t *testing.T) {
	texts := []string{"GET ", "POST ", "HTTP/1.1", "Host:"}
	traffic := []byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\nPOST /form HTTP/1.1\r\n")

	a := Compile(buildTrie(t, texts...))
	bfs, err := NewTableMachine(a, DefaultTableOptions())
	require.NoError(t, err)

	visits := make([]uint64, bfs.NumStates())
	want := Scan(bfs, traffic, ScanOptions{Visits: visits})

	var total uint64
	for _, v := range visits {
		total += v
	}
	assert.Equal(t, uint64(len(traffic)+1), total)

	order := ReorderFromVisits(visits)
	tuned, err := NewTableMachine(a, TableOptions{CommonStates: 4, ReorderMap: order})
	require.NoError(t, err)

	got := Scan(tuned, traffic, ScanOptions{})
	assert.Equal(t, want.Events, got.Events)
	assert.True(t, tuned.IsCommon(tuned.Root()), "the root is the most visited state")
}
