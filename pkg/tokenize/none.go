package tokenize

// NoneComparator is used for ignored fields: it never emits a token.
type NoneComparator struct{}

// Tokens implements Comparator.
func (NoneComparator) Tokens(value string) TokenSeq {
	return empty()
}
