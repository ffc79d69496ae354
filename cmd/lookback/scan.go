package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"time"

	"github.com/born-ml/lookback/internal/backend/cpu"
	"github.com/born-ml/lookback/internal/backend/webgpu"
	"github.com/born-ml/lookback/internal/parallel"
	"github.com/born-ml/lookback/internal/scan"
)

var errVerification = errors.New("scan result differs from the sequential reference")

type scanFlags struct {
	n          int
	block      int
	strategy   string
	reducer    string
	wait       string
	device     string
	workers    int
	shuffle    bool
	seed       uint64
	maxGroups  int
	input      string
	elem       string
	noClaimer  bool
	spinLimit  int
	stall      time.Duration
	trace      bool
	traceLimit int
	logLevel   string
}

func parseScanFlags(args []string, stderr io.Writer) (scanFlags, error) {
	var f scanFlags
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	def := scan.DefaultOptions()
	fs.IntVar(&f.n, "n", 1<<20, "sequence length")
	fs.IntVar(&f.block, "block", def.BlockCapacity, "elements per workgroup (power of two)")
	fs.StringVar(&f.strategy, "strategy", def.Strategy.String(), "lookback or twopass")
	fs.StringVar(&f.reducer, "reducer", def.Reducer.String(), "block-local scan: serial or tree")
	fs.StringVar(&f.wait, "wait", def.Wait.String(), "predecessor wait: notify or spin")
	fs.StringVar(&f.device, "device", "cpu", "cpu or webgpu")
	fs.IntVar(&f.workers, "workers", runtime.NumCPU(), "host worker goroutines (0 = one per workgroup, 1 = sequential)")
	fs.BoolVar(&f.shuffle, "shuffle", false, "start host workgroups in a random order")
	fs.Uint64Var(&f.seed, "seed", 1, "seed for -shuffle and -input random")
	fs.IntVar(&f.maxGroups, "max-groups", 0, "workgroups per dispatch (0 = device limit)")
	fs.StringVar(&f.input, "input", "random", "input values: ones, iota (1..n), random or zeros")
	fs.StringVar(&f.elem, "type", "f32", "element type: f32, f64, i32, u32, i64 or u64")
	fs.BoolVar(&f.noClaimer, "no-claimer", false, "use dispatch order instead of claimed block indices")
	fs.IntVar(&f.spinLimit, "spin-limit", def.SpinLimit, "spin iterations before a stall is reported")
	fs.DurationVar(&f.stall, "stall-timeout", def.StallTimeout, "wait bound before a stall is reported (0 = none)")
	fs.BoolVar(&f.trace, "trace", false, "dump the final state of every block")
	fs.IntVar(&f.traceLimit, "trace-limit", 32, "blocks per level shown by -trace")
	fs.StringVar(&f.logLevel, "log", "error", "log level: debug, info or error")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		return f, fmt.Errorf("scan: unexpected argument %q", fs.Arg(0))
	}
	if f.n < 0 {
		return f, fmt.Errorf("scan: negative length %d", f.n)
	}
	return f, nil
}

func (f scanFlags) options() (scan.Options, error) {
	opts := scan.DefaultOptions()
	var err error
	if opts.Strategy, err = scan.ParseStrategy(f.strategy); err != nil {
		return opts, err
	}
	if opts.Reducer, err = scan.ParseReducer(f.reducer); err != nil {
		return opts, err
	}
	if opts.Wait, err = scan.ParseWaitMode(f.wait); err != nil {
		return opts, err
	}
	opts.BlockCapacity = f.block
	if f.maxGroups > 0 {
		opts.MaxGroupsPerPass = f.maxGroups
	}
	opts.UseClaimer = !f.noClaimer
	opts.SpinLimit = f.spinLimit
	opts.StallTimeout = f.stall
	opts.Trace = f.trace
	return opts, opts.Validate()
}

func (f scanFlags) parallel() parallel.Config {
	cfg := parallel.DefaultConfig()
	cfg.Enabled = f.workers != 1
	cfg.NumWorkers = f.workers
	cfg.Shuffle = f.shuffle
	cfg.Seed = f.seed
	return cfg
}

// memoryReporter is implemented by the GPU scanner.
type memoryReporter interface {
	MemoryStats() webgpu.MemoryStats
}

// scanner is implemented by the host engine and the GPU scanner.
type scanner[T scan.Element] interface {
	Scan(ctx context.Context, data []T) error
	Options() scan.Options
	Device() string
	LastTrace() *scan.Trace
}

func newScanner[T scan.Element](f scanFlags, opts scan.Options) (scanner[T], func(), error) {
	switch f.device {
	case "cpu":
		backend := cpu.New(f.parallel())
		if f.maxGroups > 0 {
			backend.SetMaxGroupsPerPass(f.maxGroups)
		}
		engine, err := scan.New[T](backend, opts)
		if err != nil {
			return nil, nil, err
		}
		return engine, engine.Close, nil
	case "webgpu", "gpu":
		backend, err := webgpu.New()
		if err != nil {
			return nil, nil, err
		}
		s, err := webgpu.NewScanner[T](backend, opts)
		if err != nil {
			backend.Release()
			return nil, nil, err
		}
		return s, backend.Release, nil
	}
	return nil, nil, fmt.Errorf("scan: unknown device %q", f.device)
}

func runScan(args []string, stdout, stderr io.Writer) error {
	f, err := parseScanFlags(args, stderr)
	if err != nil {
		return err
	}
	setupLogging(f.logLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	switch f.elem {
	case "f32":
		return scanAs[float32](ctx, f, stdout)
	case "f64":
		return scanAs[float64](ctx, f, stdout)
	case "i32":
		return scanAs[int32](ctx, f, stdout)
	case "u32":
		return scanAs[uint32](ctx, f, stdout)
	case "i64":
		return scanAs[int64](ctx, f, stdout)
	case "u64":
		return scanAs[uint64](ctx, f, stdout)
	}
	return fmt.Errorf("scan: unknown element type %q", f.elem)
}

func scanAs[T scan.Element](ctx context.Context, f scanFlags, w io.Writer) error {
	opts, err := f.options()
	if err != nil {
		return err
	}
	s, cleanup, err := newScanner[T](f, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	input, err := generate[T](f.input, f.n, f.seed)
	if err != nil {
		return err
	}
	c := palette(w)
	eff := s.Options()
	fmt.Fprintf(w, "%s %s\n", c.head.Sprint("device"), s.Device())
	fmt.Fprintf(w, "  %d x %s (%s), block %d, %s, %s reducer, %s wait, claimer %v\n",
		f.n, f.elem, f.input, eff.BlockCapacity, eff.Strategy, eff.Reducer, eff.Wait, eff.UseClaimer)
	printPlan(w, c, scan.Plan(f.n, eff))

	start := time.Now()
	want := scan.Sequential(input)
	reference := time.Since(start)

	data := slices.Clone(input)
	start = time.Now()
	err = s.Scan(ctx, data)
	elapsed := time.Since(start)
	if err != nil {
		var stall *scan.StallError
		if errors.As(err, &stall) {
			fmt.Fprintf(w, "%s level %d block %d never saw block %d publish\n",
				c.verdict(false), stall.Level, stall.Block, stall.Waiting)
			if f.trace {
				printTrace(w, c, s.LastTrace(), f.traceLimit)
			}
		}
		return err
	}
	fmt.Fprintf(w, "reference %v, scan %v\n", reference, elapsed)
	if f.trace {
		printTrace(w, c, s.LastTrace(), f.traceLimit)
	}
	if m, ok := s.(memoryReporter); ok {
		printMemory(w, c, m.MemoryStats())
	}

	rtol, atol := tolerance[T]()
	if i := scan.Mismatch(data, want, rtol, atol); i >= 0 {
		fmt.Fprintf(w, "%s index %d: got %v, want %v\n", c.verdict(false), i, data[i], want[i])
		return errVerification
	}
	if len(data) == 0 {
		fmt.Fprintf(w, "%s empty sequence\n", c.verdict(true))
		return nil
	}
	fmt.Fprintf(w, "%s total %v\n", c.verdict(true), data[len(data)-1])
	return nil
}

// generate builds an input sequence of kind ones, iota (1..n), random or zeros.
func generate[T scan.Element](kind string, n int, seed uint64) ([]T, error) {
	out := make([]T, n)
	switch kind {
	case "zeros":
	case "ones":
		for i := range out {
			out[i] = 1
		}
	case "iota":
		for i := range out {
			out[i] = T(i + 1)
		}
	case "random":
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		float := isFloat[T]()
		for i := range out {
			if float {
				out[i] = T(r.Float64())
			} else {
				out[i] = T(r.IntN(16))
			}
		}
	default:
		return nil, fmt.Errorf("scan: unknown input %q", kind)
	}
	return out, nil
}

func isFloat[T scan.Element]() bool {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return true
	}
	return false
}

// tolerance returns the relative and absolute bounds used to compare against
// the sequential reference. Integer sums are exact.
func tolerance[T scan.Element]() (rtol, atol float64) {
	var zero T
	switch any(zero).(type) {
	case float32:
		return 1e-3, 1e-3
	case float64:
		return 1e-9, 1e-9
	}
	return 0, 0
}
