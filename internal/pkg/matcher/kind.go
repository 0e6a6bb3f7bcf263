package matcher

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects a matcher backend.
type Kind int

const (
	// KindAhoCorasick is the Aho-Corasick automaton lowered to the dense
	// table machine.
	KindAhoCorasick Kind = iota

	// KindCompressedAhoCorasick is the Aho-Corasick automaton lowered to the
	// row-compressed machine.
	KindCompressedAhoCorasick

	// KindWuManber is the shift-based matcher. It has no first-match query.
	KindWuManber
)

// ErrUnknownKind is returned by ParseKind for an unrecognised backend name.
var ErrUnknownKind = errors.New("unknown matcher kind")

var kindNames = map[Kind]string{
	KindAhoCorasick:           "ahocorasick",
	KindCompressedAhoCorasick: "compressedahocorasick",
	KindWuManber:              "wumanber",
}

var kindAliases = map[string]Kind{
	"ahocorasick":           KindAhoCorasick,
	"ahocorasick_other":     KindAhoCorasick,
	"table":                 KindAhoCorasick,
	"dense":                 KindAhoCorasick,
	"compressedahocorasick": KindCompressedAhoCorasick,
	"compressed":            KindCompressedAhoCorasick,
	"wumanber":              KindWuManber,
	"wu-manber":             KindWuManber,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k names a backend.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind converts a configuration value to a Kind. Names are matched
// case-insensitively.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
