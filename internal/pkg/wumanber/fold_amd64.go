//go:build amd64

package wumanber

import (
	"encoding/binary"

	"golang.org/x/sys/cpu"
)

// wordFold enables the 8-bytes-at-a-time path. Unaligned 64-bit loads are
// only worth it on cores with wide load units.
var wordFold = cpu.X86.HasAVX2

// foldCase writes the ASCII lowercase of src into dst, which must be at least
// as long as src. Inputs of 32 bytes or more use the word path when enabled.
func foldCase(dst, src []byte) {
	if wordFold && len(src) >= 32 {
		foldWords(dst, src)
		return
	}
	foldBytes(dst, src)
}

const (
	ones  = 0x0101010101010101
	highs = 0x8080808080808080
)

// foldWords lowercases eight bytes per step. For each byte the high bit of
// mask is set iff the byte lies in 'A'..'Z'; shifting it down by two gives
// the 0x20 to OR in. Bytes >= 0x80 are left untouched.
func foldWords(dst, src []byte) {
	i := 0
	for ; i+8 <= len(src); i += 8 {
		x := binary.LittleEndian.Uint64(src[i:])
		h := x & (0x7f * ones)
		geA := h + (0x80-'A')*ones
		gtZ := h + (0x80-'Z'-1)*ones
		mask := (geA &^ gtZ) &^ x & highs
		binary.LittleEndian.PutUint64(dst[i:], x|mask>>2)
	}
	foldBytes(dst[i:], src[i:])
}
