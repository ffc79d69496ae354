// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer locates the tokens of a text by scanning their byte
// lengths.
//
// Example usage:
//
//	tok, err := tokenizer.NewTikToken("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	offsets, err := tokenizer.NewOffsets(tok, cpu.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer offsets.Close()
//	spans, err := offsets.Spans(ctx, text)
package tokenizer

import (
	"github.com/born-ml/lookback/internal/parallel"
	"github.com/born-ml/lookback/internal/scan"
	"github.com/born-ml/lookback/internal/tokenizer"
)

// Tokenizer converts between text and token IDs.
type Tokenizer = tokenizer.Tokenizer

// TikToken wraps the OpenAI BPE encodings.
type TikToken = tokenizer.TikToken

// Span locates one token in its text.
type Span = tokenizer.Span

// Offsets computes token spans.
type Offsets = tokenizer.Offsets

// ErrSpansMismatch is returned when decoded tokens do not add up to the text.
var ErrSpansMismatch = tokenizer.ErrSpansMismatch

// NewTikToken creates a tokenizer for the named encoding.
func NewTikToken(encoding string) (*TikToken, error) {
	return tokenizer.NewTikToken(encoding)
}

// NewOffsets scans token lengths on d with the default options.
func NewOffsets(tok Tokenizer, d scan.Dispatcher) (*Offsets, error) {
	return tokenizer.NewOffsets(tok, d, scan.DefaultOptions(), parallel.DefaultConfig())
}
