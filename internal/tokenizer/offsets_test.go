package tokenizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/born-ml/lookback/internal/parallel"
	"github.com/born-ml/lookback/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkTokenizer splits text into chunks of width bytes. Token i is the i-th
// distinct chunk seen.
type chunkTokenizer struct {
	width  int
	vocab  []string
	ids    map[string]int32
	suffix string // appended to every decoded token
}

func newChunkTokenizer(width int) *chunkTokenizer {
	return &chunkTokenizer{width: width, ids: make(map[string]int32)}
}

func (c *chunkTokenizer) Encode(text string) ([]int32, error) {
	var tokens []int32
	for start := 0; start < len(text); start += c.width {
		chunk := text[start:min(start+c.width, len(text))]
		id, ok := c.ids[chunk]
		if !ok {
			id = int32(len(c.vocab))
			c.vocab = append(c.vocab, chunk)
			c.ids[chunk] = id
		}
		tokens = append(tokens, id)
	}
	return tokens, nil
}

func (c *chunkTokenizer) Decode(tokens []int32) (string, error) {
	var sb strings.Builder
	for _, tok := range tokens {
		if int(tok) >= len(c.vocab) {
			return "", errors.New("unknown token")
		}
		sb.WriteString(c.vocab[tok])
		sb.WriteString(c.suffix)
	}
	return sb.String(), nil
}

// hostDispatcher runs scan workgroups on goroutines.
type hostDispatcher struct{}

func (hostDispatcher) Name() string          { return "host" }
func (hostDispatcher) MaxGroupsPerPass() int { return 0 }

func (hostDispatcher) Dispatch(ctx context.Context, groups int, kernel scan.Kernel) error {
	return parallel.Dispatch(ctx, groups, kernel, parallel.Config{Enabled: true, NumWorkers: 4, Shuffle: true})
}

func newOffsets(t *testing.T, tok Tokenizer) *Offsets {
	t.Helper()
	opts := scan.DefaultOptions()
	opts.BlockCapacity = 8
	opts.Trace = true
	o, err := NewOffsets(tok, hostDispatcher{}, opts, parallel.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func TestOffsets_Spans(t *testing.T) {
	o := newOffsets(t, newChunkTokenizer(3))
	spans, err := o.Spans(context.Background(), "abcdefgh")
	require.NoError(t, err)
	require.Len(t, spans, 3)
	assert.Equal(t, Span{Token: 0, Start: 0, End: 3}, spans[0])
	assert.Equal(t, Span{Token: 1, Start: 3, End: 6}, spans[1])
	assert.Equal(t, Span{Token: 2, Start: 6, End: 8}, spans[2])
	assert.Equal(t, 2, spans[2].Len())
}

func TestOffsets_LongText(t *testing.T) {
	tok := newChunkTokenizer(5)
	o := newOffsets(t, tok)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 200)
	spans, err := o.Spans(context.Background(), text)
	require.NoError(t, err)

	var sb strings.Builder
	for i, s := range spans {
		piece, err := tok.Decode([]int32{s.Token})
		require.NoError(t, err)
		require.Equal(t, piece, text[s.Start:s.End], "span %d", i)
		sb.WriteString(text[s.Start:s.End])
	}
	assert.Equal(t, text, sb.String())
	assert.True(t, o.LastTrace().AllResolved())
	assert.Greater(t, o.LastTrace().Depth(), 0)
}

func TestOffsets_Empty(t *testing.T) {
	o := newOffsets(t, newChunkTokenizer(3))
	spans, err := o.Spans(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestOffsets_Mismatch(t *testing.T) {
	tok := newChunkTokenizer(2)
	tok.suffix = "!"
	o := newOffsets(t, tok)
	_, err := o.Spans(context.Background(), "abcd")
	assert.ErrorIs(t, err, ErrSpansMismatch)
}
