// Package tokenizer locates the tokens of a text.
//
// A tokenizer maps text to token IDs; decoding each ID alone yields the
// token's bytes. The byte offset of every token is the exclusive prefix sum
// of the token lengths, which Offsets computes with an exact uint32 scan on
// any scan.Dispatcher.
//
// Example usage:
//
//	tok, err := tokenizer.NewTikToken("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	offsets, err := tokenizer.NewOffsets(tok, cpu.New(parallel.DefaultConfig()), scan.DefaultOptions(), parallel.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer offsets.Close()
//
//	spans, err := offsets.Spans(ctx, "Hello, world!")
package tokenizer
