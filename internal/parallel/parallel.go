// Package parallel runs workgroup invocations on goroutines.
package parallel

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool   // Whether parallel execution is enabled.
	NumWorkers   int    // Worker goroutines; 0 starts one goroutine per invocation.
	MinChunkSize int    // Minimum items per goroutine for For.
	Shuffle      bool   // Start invocations in a random order.
	Seed         uint64 // Seed for Shuffle; 0 picks a random permutation.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Typical cache line aware chunk.
	}
}

// Workers returns the number of goroutines Dispatch uses for n invocations.
func (cfg Config) Workers(n int) int {
	switch {
	case !cfg.Enabled:
		return 1
	case cfg.NumWorkers <= 0 || cfg.NumWorkers > n:
		return n
	default:
		return cfg.NumWorkers
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	workers := cfg.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var wg sync.WaitGroup
	chunkSize := max((n+workers-1)/workers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// Dispatch runs f once for every invocation in [0, n) and waits for all of
// them. Workers pull the next invocation from a shared cursor, so an
// invocation only starts after every invocation before it in start order has
// started. The first error cancels the context passed to the remaining
// invocations and is returned.
func Dispatch(ctx context.Context, n int, f func(ctx context.Context, i int) error, cfg Config) error {
	if n <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	order := startOrder(n, cfg)

	var (
		wg     sync.WaitGroup
		cursor atomic.Int64
		once   sync.Once
		first  error
	)
	for w := cfg.Workers(n); w > 0; w-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				k := int(cursor.Add(1) - 1)
				if k >= n || ctx.Err() != nil {
					return
				}
				if err := f(ctx, order[k]); err != nil {
					once.Do(func() {
						first = err
						cancel(err)
					})
					return
				}
			}
		}()
	}
	wg.Wait()

	if first != nil {
		return first
	}
	return context.Cause(ctx)
}

func startOrder(n int, cfg Config) []int {
	if !cfg.Shuffle {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}
	if cfg.Seed == 0 {
		return rand.Perm(n)
	}
	return rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)).Perm(n)
}
