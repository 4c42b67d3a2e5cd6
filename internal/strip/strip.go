// Package strip removes C-style comments from source text.
package strip

// Comments copies src into dst without // line comments and /* */ block
// comments, and returns the number of bytes written. Comment markers inside
// string and character literals are kept. A line comment's terminating
// newline is kept; a block comment is dropped entirely. Copying stops at
// the first NUL byte. dst must be at least len(src) bytes.
func Comments(dst, src []byte) int {
	var (
		n       int
		quote   byte // open literal delimiter, 0 outside literals
		escaped bool
		inLine  bool
		inBlock bool
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == 0 {
			break
		}
		switch {
		case inLine:
			if c == '\n' {
				inLine = false
				dst[n] = c
				n++
			}
		case inBlock:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				inBlock = false
				i++
			}
		case quote != 0:
			dst[n] = c
			n++
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote || c == '\n':
				quote = 0
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			inLine = true
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			inBlock = true
			i++
		default:
			if c == '"' || c == '\'' {
				quote = c
			}
			dst[n] = c
			n++
		}
	}
	return n
}
