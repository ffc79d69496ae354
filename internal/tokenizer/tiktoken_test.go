package tokenizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTikToken skips when the BPE ranks cannot be loaded (offline runs).
func newTikToken(t *testing.T, encoding string) *TikToken {
	t.Helper()
	tok, err := NewTikToken(encoding)
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	return tok
}

func TestTikToken_InvalidEncoding(t *testing.T) {
	tok, err := NewTikToken("invalid_encoding_xyz")
	assert.Error(t, err)
	assert.Nil(t, tok)
}

func TestTikToken_Roundtrip(t *testing.T) {
	tok := newTikToken(t, DefaultEncoding)
	assert.Equal(t, DefaultEncoding, tok.Name())

	for _, text := range []string{"Hello, world!", "Hello\nWorld\n", "Hello 世界! 🌍", ""} {
		tokens, err := tok.Encode(text)
		require.NoError(t, err)
		decoded, err := tok.Decode(tokens)
		require.NoError(t, err)
		assert.Equal(t, text, decoded)
	}
}

// Multi-byte characters may be split across tokens; spans still tile the
// text byte for byte.
func TestTikToken_Spans(t *testing.T) {
	tok := newTikToken(t, DefaultEncoding)
	o := newOffsets(t, tok)

	text := "The quick brown fox 🦊 jumps over the lazy dog. 世界你好!"
	spans, err := o.Spans(context.Background(), text)
	require.NoError(t, err)
	require.NotEmpty(t, spans)

	assert.Equal(t, uint32(0), spans[0].Start)
	assert.Equal(t, uint32(len(text)), spans[len(spans)-1].End)
	for i := 1; i < len(spans); i++ {
		assert.Equal(t, spans[i-1].End, spans[i].Start)
	}
}

func TestEncodings(t *testing.T) {
	assert.Contains(t, Encodings(), DefaultEncoding)
}
