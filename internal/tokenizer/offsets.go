package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/lookback/internal/parallel"
	"github.com/born-ml/lookback/internal/scan"
)

// ErrSpansMismatch is returned when the decoded tokens do not add up to the
// encoded text.
var ErrSpansMismatch = errors.New("tokenizer: token bytes do not cover the text")

// ErrTextTooLong is returned for texts whose offsets do not fit in uint32.
var ErrTextTooLong = errors.New("tokenizer: text exceeds 4 GiB")

// Offsets computes token spans with a prefix scan of the token lengths.
type Offsets struct {
	tok    Tokenizer
	engine *scan.Engine[uint32]
	cfg    parallel.Config
}

// NewOffsets scans on d with opts. cfg controls the parallel decoding of
// token lengths.
func NewOffsets(tok Tokenizer, d scan.Dispatcher, opts scan.Options, cfg parallel.Config) (*Offsets, error) {
	engine, err := scan.New[uint32](d, opts)
	if err != nil {
		return nil, err
	}
	return &Offsets{tok: tok, engine: engine, cfg: cfg}, nil
}

// Spans encodes text and locates every token in it.
func (o *Offsets) Spans(ctx context.Context, text string) ([]Span, error) {
	if uint64(len(text)) > math.MaxUint32 {
		return nil, ErrTextTooLong
	}
	tokens, err := o.tok.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: encode: %w", err)
	}

	lengths, err := o.lengths(tokens)
	if err != nil {
		return nil, err
	}
	ends := make([]uint32, len(lengths))
	if err := o.engine.ScanInto(ctx, ends, lengths); err != nil {
		return nil, err
	}

	var total uint32
	if len(ends) > 0 {
		total = ends[len(ends)-1]
	}
	if int(total) != len(text) {
		return nil, fmt.Errorf("%w: %d tokens hold %d bytes, text has %d", ErrSpansMismatch, len(tokens), total, len(text))
	}

	spans := make([]Span, len(tokens))
	for i, tok := range tokens {
		spans[i] = Span{Token: tok, Start: ends[i] - lengths[i], End: ends[i]}
	}
	return spans, nil
}

// lengths decodes every token on its own and returns its byte length.
func (o *Offsets) lengths(tokens []int32) ([]uint32, error) {
	lengths := make([]uint32, len(tokens))
	errs := make([]error, len(tokens))
	parallel.For(len(tokens), func(i int) {
		s, err := o.tok.Decode(tokens[i : i+1])
		lengths[i] = uint32(len(s)) //nolint:gosec // G115: bounded by the text length.
		errs[i] = err
	}, o.cfg)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("tokenizer: decode: %w", err)
	}
	return lengths, nil
}

// LastTrace returns the trace of the last offset scan, if tracing is enabled.
func (o *Offsets) LastTrace() *scan.Trace {
	return o.engine.LastTrace()
}

// Close releases the scan engine.
func (o *Offsets) Close() {
	o.engine.Close()
}
