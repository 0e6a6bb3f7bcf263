// Package wumanber implements the Wu-Manber multi-pattern search: a window the
// length of the shortest pattern slides over the input, shifted by a table
// indexed on its last block of bytes. Only when the shift is zero are the
// patterns sharing that block verified.
//
// The matcher answers whether any pattern occurs. It does not rank patterns,
// so there is no first-match query.
package wumanber

import (
	"bytes"
	"sync"

	"github.com/endorses/stringmatch/internal/pkg/pattern"
)

// Options configures a Builder.
type Options struct {
	// FoldCase makes matching ASCII case-insensitive.
	FoldCase bool

	// MaxPatterns bounds the number of patterns. Zero selects
	// pattern.DefaultMaxPatterns.
	MaxPatterns int
}

// entry is a pattern as stored: folded when case folding is on.
type entry struct {
	id     pattern.ID
	data   []byte
	prefix uint16
}

// Builder collects patterns for a Matcher.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	opts    Options
	entries []entry
	seen    map[string]struct{}
	closed  bool
}

// NewBuilder creates an empty builder.
func NewBuilder(opts Options) *Builder {
	if opts.MaxPatterns <= 0 {
		opts.MaxPatterns = pattern.DefaultMaxPatterns
	}
	return &Builder{
		opts: opts,
		seen: make(map[string]struct{}),
	}
}

// Add adds a pattern. With case folding, patterns differing only in ASCII
// case are duplicates.
func (b *Builder) Add(data []byte, id pattern.ID) error {
	if b.closed {
		return pattern.ErrClosed
	}
	if err := pattern.Validate(data); err != nil {
		return err
	}

	stored := append([]byte(nil), data...)
	if b.opts.FoldCase {
		stored = Fold(data)
	}
	if _, ok := b.seen[string(stored)]; ok {
		return pattern.ErrDuplicatePattern
	}
	if len(b.entries) >= b.opts.MaxPatterns {
		return pattern.ErrTooManyPatterns
	}

	b.seen[string(stored)] = struct{}{}
	b.entries = append(b.entries, entry{id: id, data: stored, prefix: prefixKey(stored)})
	return nil
}

// Len returns the number of patterns added.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Build closes the builder and compiles the shift and hash tables.
func (b *Builder) Build() *Matcher {
	b.closed = true

	m := &Matcher{
		foldCase: b.opts.FoldCase,
		entries:  b.entries,
	}
	if len(b.entries) == 0 {
		return m
	}

	m.minLen = len(b.entries[0].data)
	for _, e := range b.entries[1:] {
		m.minLen = min(m.minLen, len(e.data))
	}
	m.block = 1
	if m.minLen >= 2 {
		m.block = 2
	}

	size := 1 << (8 * m.block)
	defShift := uint16(m.minLen - m.block + 1)
	m.shift = make([]uint16, size)
	for i := range m.shift {
		m.shift[i] = defShift
	}
	m.head = make([]int32, size)
	m.next = make([]int32, len(b.entries))

	for i, e := range b.entries {
		prefix := e.data[:m.minLen]
		for j := m.block; j <= m.minLen; j++ {
			h := m.hash(prefix[j-m.block : j])
			m.shift[h] = min(m.shift[h], uint16(m.minLen-j))
		}
		h := m.hash(prefix[m.minLen-m.block:])
		m.next[i] = m.head[h]
		m.head[h] = int32(i + 1)
	}

	if m.foldCase {
		m.scratch = &sync.Pool{New: func() any {
			buf := make([]byte, 0, 2048)
			return &buf
		}}
	}
	return m
}

// Matcher is a compiled Wu-Manber table. It is read-only and safe for
// concurrent searches.
type Matcher struct {
	foldCase bool
	entries  []entry

	minLen int
	block  int
	shift  []uint16

	// head[h] is 1 + the first entry whose prefix ends with block h, next
	// chains the others; zero ends a chain.
	head []int32
	next []int32

	scratch *sync.Pool
}

// Len returns the number of patterns.
func (m *Matcher) Len() int {
	return len(m.entries)
}

// MinLength returns the length of the shortest pattern, the window size.
func (m *Matcher) MinLength() int {
	return m.minLen
}

// BlockSize returns the number of bytes hashed per shift lookup.
func (m *Matcher) BlockSize() int {
	return m.block
}

func (m *Matcher) hash(block []byte) int {
	if m.block == 1 {
		return int(block[0])
	}
	return int(block[0])<<8 | int(block[1])
}

func prefixKey(data []byte) uint16 {
	if len(data) == 1 {
		return uint16(data[0]) << 8
	}
	return uint16(data[0])<<8 | uint16(data[1])
}

// Search calls fn for every occurrence with the pattern id and the end
// offset, in order of window position. fn returns false to stop.
func (m *Matcher) Search(input []byte, fn func(id pattern.ID, end int) bool) {
	if m.minLen == 0 || len(input) < m.minLen {
		return
	}

	text := input
	if m.foldCase {
		bufp := m.scratch.Get().(*[]byte)
		defer m.scratch.Put(bufp)
		if cap(*bufp) < len(input) {
			*bufp = make([]byte, len(input))
		}
		text = (*bufp)[:len(input)]
		foldCase(text, input)
	}

	n := len(text)
	for pos := m.minLen - 1; pos < n; {
		h := m.hash(text[pos-m.block+1 : pos+1])
		if s := m.shift[h]; s > 0 {
			pos += int(s)
			continue
		}

		start := pos - m.minLen + 1
		textPrefix := prefixKey(text[start:])
		for i := m.head[h]; i != 0; i = m.next[i-1] {
			e := &m.entries[i-1]
			if len(e.data) > 1 && e.prefix != textPrefix {
				continue
			}
			if len(e.data) == 1 && e.prefix != textPrefix&0xff00 {
				continue
			}
			end := start + len(e.data)
			if end > n || !bytes.Equal(text[start:end], e.data) {
				continue
			}
			if !fn(e.id, end) {
				return
			}
		}
		pos++
	}
}

// MatchAny reports whether any pattern occurs in input.
func (m *Matcher) MatchAny(input []byte) bool {
	found := false
	m.Search(input, func(pattern.ID, int) bool {
		found = true
		return false
	})
	return found
}
