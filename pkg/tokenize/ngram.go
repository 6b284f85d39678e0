package tokenize

import (
	"fmt"
	"strings"
)

// NgramComparator tokenizes a value into its sliding n-gram windows.
// See spec.md §4.2 for the exact padding and counting rules; this
// mirrors clkhash's NgramComparison, with one deliberate simplification
// for n=0 (see below).
type NgramComparator struct {
	N          int
	Positional bool
}

// NewNgramComparator validates n and returns a ready-to-use comparator.
func NewNgramComparator(n int, positional bool) (*NgramComparator, error) {
	if n < 0 {
		return nil, fmt.Errorf("tokenize: n-gram n must be non-negative, got %d", n)
	}
	return &NgramComparator{N: n, Positional: positional}, nil
}

// Tokens implements Comparator.
func (c *NgramComparator) Tokens(value string) TokenSeq {
	if len(value) == 0 {
		return empty()
	}

	// n=0 captures only the fact that the field is present, not its
	// content: emit a single empty token rather than len(word)+1 copies
	// of "" (spec.md §4.2).
	if c.N == 0 {
		return single("")
	}

	// Window over runes, not bytes: spec.md property 4 counts Unicode
	// characters, and byte-slicing a multibyte UTF-8 value would split
	// code points and produce the wrong token count and content.
	word := []rune(value)
	if c.N > 1 {
		pad := []rune(strings.Repeat(" ", c.N-1))
		padded := make([]rune, 0, len(pad)*2+len(word))
		padded = append(padded, pad...)
		padded = append(padded, word...)
		padded = append(padded, pad...)
		word = padded
	}
	n := c.N
	count := len(word) - n + 1

	return func(yield func(string) bool) {
		for i := 0; i < count; i++ {
			tok := string(word[i : i+n])
			if c.Positional {
				tok = fmt.Sprintf("%d %s", i+1, tok)
			}
			if !yield(tok) {
				return
			}
		}
	}
}
