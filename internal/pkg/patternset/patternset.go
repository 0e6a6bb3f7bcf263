// Package patternset loads pattern sets: the patterns handed to a matcher
// together with the backend and tuning settings that belong to them.
//
// A pattern set file is YAML:
//
//	matcher: compressedahocorasick
//	hex: false
//	fold_case: true
//	common_states: 256
//	reorder_map: traffic.map
//	patterns:
//	  - "GET /admin"
//	  - value: "2f6574632f706173737764"
//	    hex: true
//	  - value: "cmd.exe"
//	    id: 40
//
// Pattern ids default to the pattern's index in the list.
package patternset

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
	"gopkg.in/yaml.v3"
)

// ErrInvalidHex is returned for a hex pattern that does not decode.
var ErrInvalidHex = errors.New("invalid hex pattern")

// File is the YAML form of a pattern set.
type File struct {
	Matcher           string  `yaml:"matcher,omitempty"`
	Hex               bool    `yaml:"hex,omitempty"`
	FoldCase          *bool   `yaml:"fold_case,omitempty"`
	MaxPatterns       int     `yaml:"max_patterns,omitempty"`
	CommonStates      int     `yaml:"common_states,omitempty"`
	UncommonRateLimit float64 `yaml:"uncommon_rate_limit,omitempty"`
	MaxGotosLE        int     `yaml:"max_gotos_le,omitempty"`
	MaxGotosBM        int     `yaml:"max_gotos_bm,omitempty"`
	ReorderMap        string  `yaml:"reorder_map,omitempty"`
	Patterns          []Entry `yaml:"patterns"`
}

// Entry is one pattern. It is written either as a plain string or as a
// mapping with value, id and hex keys.
type Entry struct {
	Value string  `yaml:"value"`
	ID    *uint32 `yaml:"id,omitempty"`
	Hex   *bool   `yaml:"hex,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Value = node.Value
		return nil
	}
	type plain Entry
	return node.Decode((*plain)(e))
}

// Set is a decoded pattern set.
type Set struct {
	// Kind is the backend named by the file; HasKind is false when the
	// file leaves the choice to the configuration.
	Kind    matcher.Kind
	HasKind bool

	Patterns []pattern.Pattern

	// ReorderMap is loaded from the file's reorder_map path, resolved
	// relative to the file.
	ReorderMap []ahocorasick.State

	file File
}

// Load reads and decodes a pattern set file.
func Load(path string) (*Set, error) {
	// #nosec G304 -- Path is from configuration, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	set, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a pattern set. baseDir resolves a relative reorder_map.
func Parse(data []byte, baseDir string) (*Set, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse pattern YAML: %w", err)
	}

	set := &Set{file: f}
	if f.Matcher != "" {
		kind, err := matcher.ParseKind(f.Matcher)
		if err != nil {
			return nil, err
		}
		set.Kind = kind
		set.HasKind = true
	}

	set.Patterns = make([]pattern.Pattern, 0, len(f.Patterns))
	for i, e := range f.Patterns {
		isHex := f.Hex
		if e.Hex != nil {
			isHex = *e.Hex
		}
		data, err := Decode(e.Value, isHex)
		if err != nil {
			return nil, fmt.Errorf("pattern #%d: %w", i, err)
		}
		id := pattern.ID(i)
		if e.ID != nil {
			id = pattern.ID(*e.ID)
		}
		set.Patterns = append(set.Patterns, pattern.New(id, data))
	}

	if f.ReorderMap != "" {
		path := f.ReorderMap
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		order, err := ahocorasick.LoadReorderMap(path)
		if err != nil {
			return nil, err
		}
		set.ReorderMap = order
	}

	return set, nil
}

// Apply overlays the settings of the file on opts.
func (s *Set) Apply(opts matcher.Options) matcher.Options {
	f := s.file
	if f.FoldCase != nil {
		opts.FoldCase = *f.FoldCase
	}
	if f.MaxPatterns > 0 {
		opts.MaxPatterns = f.MaxPatterns
	}
	if f.CommonStates > 0 {
		opts.CommonStates = f.CommonStates
	}
	if f.UncommonRateLimit > 0 {
		opts.UncommonRateLimit = f.UncommonRateLimit
	}
	if f.MaxGotosLE > 0 {
		opts.MaxGotosLE = f.MaxGotosLE
	}
	if f.MaxGotosBM > 0 {
		opts.MaxGotosBM = f.MaxGotosBM
	}
	if s.ReorderMap != nil {
		opts.ReorderMap = s.ReorderMap
	}
	return opts
}

// Decode converts a pattern as written to its bytes. Hex patterns may use
// upper or lower case digits and contain spaces or colons between bytes.
func Decode(value string, isHex bool) ([]byte, error) {
	if !isHex {
		return []byte(value), nil
	}
	clean := strings.Map(func(r rune) rune {
		if r == ' ' || r == ':' || r == '\t' {
			return -1
		}
		return r
	}, value)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidHex, value, err)
	}
	return data, nil
}

// LoadText reads one pattern per line, ids being line numbers from zero.
// Blank lines and lines starting with '#' are skipped but still counted.
func LoadText(r io.Reader, isHex bool) ([]pattern.Pattern, error) {
	var patterns []pattern.Pattern
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*pattern.MaxLength+16)
	line := -1
	for scanner.Scan() {
		line++
		// Plain lines alias the scanner's buffer until pattern.New copies them.
		text := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(bytes.TrimSpace(text)) == 0 || bytes.HasPrefix(text, []byte("#")) {
			continue
		}
		data := text
		if isHex {
			var err error
			if data, err = Decode(string(text), true); err != nil {
				return nil, fmt.Errorf("line %d: %w", line+1, err)
			}
		}
		patterns = append(patterns, pattern.New(pattern.ID(line), data))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read patterns: %w", err)
	}
	return patterns, nil
}

// LoadAny loads a pattern set from a YAML file, or from a plain text file
// with one pattern per line when the extension is not .yaml or .yml.
func LoadAny(path string, isHex bool) (*Set, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Load(path)
	}

	// #nosec G304 -- Path is from configuration, not user input
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern file: %w", err)
	}
	defer f.Close()

	patterns, err := LoadText(f, isHex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Set{Patterns: patterns}, nil
}
