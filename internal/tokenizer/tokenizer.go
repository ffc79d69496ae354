package tokenizer

// Tokenizer is the core interface for text tokenization.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// Decode converts token IDs back to text.
	Decode(tokens []int32) (string, error)
}

// Span locates one token in the text it was encoded from: text[Start:End]
// holds the token's bytes.
type Span struct {
	Token int32
	Start uint32
	End   uint32
}

// Len returns the token length in bytes.
func (s Span) Len() int {
	return int(s.End - s.Start)
}
