package ahocorasick

import (
	"bytes"
	"testing"

	oracle "github.com/coregx/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// splitPatterns turns a comma separated list into distinct, short patterns.
func splitPatterns(raw []byte) [][]byte {
	seen := make(map[string]bool)
	var out [][]byte
	for _, p := range bytes.Split(raw, []byte(",")) {
		if len(p) == 0 || len(p) > 16 || seen[string(p)] {
			continue
		}
		seen[string(p)] = true
		out = append(out, p)
		if len(out) == 32 {
			break
		}
	}
	return out
}

func FuzzMachinesAgree(f *testing.F) {
	f.Add([]byte("he,she,his,hers"), []byte("ushers"))
	f.Add([]byte("cat,cats,dog"), []byte("the cats sat"))
	f.Add([]byte("a,aa,aaa"), []byte("aaaaaaa"))
	f.Add([]byte("GET ,POST ,HTTP/1."), []byte("GET / HTTP/1.1\r\n"))
	f.Add([]byte("\x00\xff,\xff\x00"), []byte("\x00\xff\x00\xff"))

	f.Fuzz(func(t *testing.T, rawPatterns, input []byte) {
		patterns := splitPatterns(rawPatterns)
		if len(patterns) < 2 {
			t.Skip()
		}

		trie := NewTrie(0)
		ref := oracle.NewBuilder()
		for i, p := range patterns {
			require.NoError(t, trie.Insert(p, pattern.ID(i)))
			ref.AddPattern(p)
		}
		a := Compile(trie)
		want, err := ref.Build()
		require.NoError(t, err)

		// Small limits so every table kind and the sparse path are exercised.
		table, err := NewTableMachine(a, TableOptions{CommonStates: 4})
		require.NoError(t, err)
		compressed, err := NewCompressedMachine(a, CompressedOptions{MaxGotosLE: 1, MaxGotosBM: 2})
		require.NoError(t, err)

		tableAll := Scan(table, input, ScanOptions{})
		compressedAll := Scan(compressed, input, ScanOptions{})
		assert.Equal(t, tableAll.Events, compressedAll.Events)
		assert.Equal(t, want.IsMatch(input), tableAll.Matched())

		tableFirst := Scan(table, input, ScanOptions{Mode: ModeFirst})
		compressedFirst := Scan(compressed, input, ScanOptions{Mode: ModeFirst})
		assert.Equal(t, tableFirst.Events, compressedFirst.Events)
		assert.Equal(t, tableAll.Matched(), tableFirst.Matched())
	})
}
