package wumanber

// lowerTable maps every byte to its ASCII lowercase.
var lowerTable = func() (t [256]byte) {
	for i := range t {
		b := byte(i)
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		t[i] = b
	}
	return t
}()

func foldBytes(dst, src []byte) {
	for i, b := range src {
		dst[i] = lowerTable[b]
	}
}

// Fold returns the ASCII lowercase copy of data, the form patterns are
// compared in when FoldCase is set.
func Fold(data []byte) []byte {
	out := make([]byte, len(data))
	foldCase(out, data)
	return out
}
