package ahocorasick

import (
	"bytes"
	"slices"
	"testing"

	"github.com/endorses/stringmatch/internal/pkg/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTrie inserts texts with their indexes as ids.
func buildTrie(t testing.TB, texts ...string) *Trie {
	t.Helper()
	trie := NewTrie(0)
	for _, p := range pattern.FromStrings(texts...) {
		require.NoError(t, trie.Insert(p.Data, p.ID))
	}
	return trie
}

// naiveEvents reports every occurrence by brute force: for each end offset,
// longer patterns first, which is the order the failure chain yields them.
func naiveEvents(texts []string, input []byte) []MatchEvent {
	ids := make([]int, len(texts))
	for i := range ids {
		ids[i] = i
	}
	slices.SortStableFunc(ids, func(x, y int) int {
		return len(texts[y]) - len(texts[x])
	})

	var events []MatchEvent
	for end := 1; end <= len(input); end++ {
		for _, id := range ids {
			if bytes.HasSuffix(input[:end], []byte(texts[id])) {
				events = append(events, MatchEvent{PatternID: pattern.ID(id), End: end})
			}
		}
	}
	return events
}

func TestTrie_Insert(t *testing.T) {
	trie := NewTrie(0)

	require.NoError(t, trie.Insert([]byte("cats"), 0))
	require.NoError(t, trie.Insert([]byte("cat"), 1), "a prefix of a pattern is not a duplicate")
	assert.Equal(t, 2, trie.Len())
	assert.Equal(t, 5, trie.Size())

	assert.True(t, trie.Contains([]byte("cat")))
	assert.True(t, trie.Contains([]byte("cats")))
	assert.False(t, trie.Contains([]byte("ca")))
	assert.False(t, trie.Contains([]byte("dog")))
}

func TestTrie_InsertErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "duplicate",
			data:    []byte("cat"),
			wantErr: pattern.ErrDuplicatePattern,
		},
		{
			name:    "zero length",
			data:    nil,
			wantErr: pattern.ErrZeroLengthPattern,
		},
		{
			name:    "too long",
			data:    make([]byte, pattern.MaxLength+1),
			wantErr: pattern.ErrPatternTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trie := buildTrie(t, "cat", "dog")
			size := trie.Size()

			err := trie.Insert(tt.data, 7)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 2, trie.Len())
			assert.Equal(t, size, trie.Size(), "rejected pattern must not change the trie")
		})
	}
}

func TestTrie_MaxLengthAccepted(t *testing.T) {
	trie := NewTrie(0)
	assert.NoError(t, trie.Insert(bytes.Repeat([]byte{'x'}, pattern.MaxLength), 0))
}

func TestTrie_TooManyPatterns(t *testing.T) {
	trie := NewTrie(2)
	require.NoError(t, trie.Insert([]byte("a"), 0))
	require.NoError(t, trie.Insert([]byte("b"), 1))

	assert.ErrorIs(t, trie.Insert([]byte("c"), 2), pattern.ErrTooManyPatterns)
	assert.ErrorIs(t, trie.Insert([]byte("a"), 3), pattern.ErrDuplicatePattern)
	assert.Equal(t, 2, trie.Len())
}

func TestTrie_Closed(t *testing.T) {
	trie := buildTrie(t, "cat", "dog")
	trie.Close()

	assert.True(t, trie.Closed())
	assert.ErrorIs(t, trie.Insert([]byte("bird"), 2), pattern.ErrClosed)
	assert.False(t, trie.Contains([]byte("bird")))
}

func TestCompile_BFSOrderAndFailureLinks(t *testing.T) {
	// he=0 she=1 his=2 hers=3
	a := Compile(buildTrie(t, "he", "she", "his", "hers"))

	// 0 root, 1 h, 2 s, 3 he, 4 hi, 5 sh, 6 her, 7 his, 8 she, 9 hers
	require.Equal(t, 10, a.NumStates())
	assert.Equal(t, 4, a.Patterns())

	depths := []int{0, 1, 1, 2, 2, 2, 3, 3, 3, 4}
	for s, d := range depths {
		assert.Equal(t, d, a.Depth(State(s)), "depth of state %d", s)
	}

	fails := map[State]State{1: 0, 2: 0, 3: 0, 4: 0, 5: 1, 6: 0, 7: 2, 8: 3, 9: 2}
	for s, f := range fails {
		assert.Equal(t, f, a.Fail(s), "failure link of state %d", s)
	}

	assert.True(t, a.HasFailInto(RootState))
	assert.True(t, a.HasFailInto(3))
	assert.False(t, a.HasFailInto(9))
}

func TestCompile_OutputUnion(t *testing.T) {
	a := Compile(buildTrie(t, "he", "she", "his", "hers"))

	tests := []struct {
		state State
		want  []pattern.ID
	}{
		{state: 3, want: []pattern.ID{0}},
		{state: 8, want: []pattern.ID{1, 0}},
		{state: 7, want: []pattern.ID{2}},
		{state: 9, want: []pattern.ID{3}},
		{state: 5, want: nil},
		{state: RootState, want: nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, a.Outputs(tt.state), "outputs of state %d", tt.state)
		assert.Equal(t, len(tt.want) > 0, a.IsMatch(tt.state))
	}
}

func TestCompile_NextIsComplete(t *testing.T) {
	a := Compile(buildTrie(t, "he", "she", "his", "hers"))

	assert.Equal(t, RootState, a.Next(RootState, 'x'))
	assert.Equal(t, State(1), a.Next(RootState, 'h'))
	assert.Equal(t, State(6), a.Next(8, 'r'), "she fails to he which has r")
	assert.Equal(t, State(2), a.Next(9, 's'), "hers fails to s")
	assert.Equal(t, RootState, a.Next(9, 'z'))

	for s := State(0); int(s) < a.NumStates(); s++ {
		for b := 0; b < 256; b++ {
			next := a.Next(s, byte(b))
			assert.True(t, next >= 0 && int(next) < a.NumStates())
		}
	}
}

func TestCompile_LeavesTrieUsable(t *testing.T) {
	trie := buildTrie(t, "cat", "dog")
	first := Compile(trie)

	require.NoError(t, trie.Insert([]byte("bird"), 2))
	second := Compile(trie)

	assert.Equal(t, 2, first.Patterns())
	assert.Equal(t, 3, second.Patterns())
	assert.Greater(t, second.NumStates(), first.NumStates())
}

func TestCompile_ChildrenInByteOrder(t *testing.T) {
	a := Compile(buildTrie(t, "zb", "za", "zc", "a"))

	var labels []byte
	var targets []State
	z := a.Next(RootState, 'z')
	a.Children(z, func(b byte, to State) {
		labels = append(labels, b)
		targets = append(targets, to)
	})

	assert.Equal(t, []byte("abc"), labels)
	assert.True(t, slices.IsSorted(targets))
	assert.Equal(t, 3, a.OutDegree(z))
}
