//go:build !amd64

package wumanber

// foldCase writes the ASCII lowercase of src into dst, which must be at least
// as long as src.
func foldCase(dst, src []byte) {
	foldBytes(dst, src)
}
