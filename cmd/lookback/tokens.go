package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/born-ml/lookback/internal/backend/cpu"
	"github.com/born-ml/lookback/internal/parallel"
	"github.com/born-ml/lookback/internal/scan"
	"github.com/born-ml/lookback/internal/tokenizer"
)

func runTokens(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "text file to tokenize (- for stdin)")
	encoding := fs.String("encoding", tokenizer.DefaultEncoding, "tiktoken encoding: "+joinOr(tokenizer.Encodings(), "none"))
	model := fs.String("model", "", "model name; overrides -encoding")
	block := fs.Int("block", 256, "token lengths per workgroup")
	show := fs.Int("show", 20, "spans to print")
	logLevel := fs.String("log", "error", "log level: debug, info or error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("tokens: -file is required")
	}
	setupLogging(*logLevel)

	text, err := readText(*file)
	if err != nil {
		return err
	}
	var tok *tokenizer.TikToken
	if *model != "" {
		tok, err = tokenizer.NewTikTokenForModel(*model)
	} else {
		tok, err = tokenizer.NewTikToken(*encoding)
	}
	if err != nil {
		return err
	}

	cfg := parallel.DefaultConfig()
	opts := scan.DefaultOptions()
	opts.BlockCapacity = *block
	offsets, err := tokenizer.NewOffsets(tok, cpu.New(cfg), opts, cfg)
	if err != nil {
		return err
	}
	defer offsets.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()
	spans, err := offsets.Spans(ctx, text)
	if err != nil {
		return err
	}

	c := palette(stdout)
	fmt.Fprintf(stdout, "%s %s: %d bytes, %d tokens in %v\n",
		c.head.Sprint("encoding"), tok.Name(), len(text), len(spans), time.Since(start))
	for i, sp := range spans {
		if i == *show {
			fmt.Fprintln(stdout, c.dim.Sprintf("... %d more", len(spans)-i))
			break
		}
		fmt.Fprintf(stdout, "  %6d [%d,%d) %s\n", sp.Token, sp.Start, sp.End, strconv.Quote(text[sp.Start:sp.End]))
	}
	return nil
}

func readText(name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("tokens: %w", err)
	}
	return string(b), nil
}
