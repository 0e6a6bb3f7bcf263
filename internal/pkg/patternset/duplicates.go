package patternset

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// DefaultBloomFPRate is the target false positive rate of the duplicate
// pre-check. A false positive only costs a map lookup.
const DefaultBloomFPRate = 0.001

// Duplicate is a pattern whose bytes already appeared earlier in the set.
type Duplicate struct {
	Index int
	ID    pattern.ID

	// FirstIndex is the position of the earlier occurrence.
	FirstIndex int
}

// Duplicates lists the patterns that repeat an earlier one. Most sets have
// none, so a bloom filter rejects fresh patterns before the exact index is
// consulted. fold maps a pattern to the form compared, nil for the bytes
// as they are.
func Duplicates(patterns []pattern.Pattern, fold func([]byte) []byte) []Duplicate {
	if len(patterns) < 2 {
		return nil
	}

	bf := bloom.NewWithEstimates(uint(len(patterns)), DefaultBloomFPRate)
	first := make(map[string]int)
	var dups []Duplicate

	for i, p := range patterns {
		key := p.Data
		if fold != nil {
			key = fold(key)
		}
		if bf.TestAndAdd(key) {
			if j, ok := first[string(key)]; ok {
				dups = append(dups, Duplicate{Index: i, ID: p.ID, FirstIndex: j})
				continue
			}
		}
		first[string(key)] = i
	}
	return dups
}
