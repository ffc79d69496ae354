package scan

import (
	"context"
	"math/rand/v2"

	"github.com/born-ml/lookback/internal/parallel"
)

// hostDispatcher runs workgroups on goroutines for the tests of this package.
type hostDispatcher struct {
	cfg       parallel.Config
	maxGroups int
}

func (d hostDispatcher) Name() string          { return "test host" }
func (d hostDispatcher) MaxGroupsPerPass() int { return d.maxGroups }

func (d hostDispatcher) Dispatch(ctx context.Context, groups int, kernel Kernel) error {
	return parallel.Dispatch(ctx, groups, kernel, d.cfg)
}

func concurrent() hostDispatcher {
	return hostDispatcher{cfg: parallel.Config{Enabled: true}}
}

func shuffled(seed uint64, workers int) hostDispatcher {
	return hostDispatcher{cfg: parallel.Config{Enabled: true, NumWorkers: workers, Shuffle: true, Seed: seed}}
}

func ones[T Element](n int) []T {
	s := make([]T, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

func iota1[T Element](n int) []T {
	s := make([]T, n)
	for i := range s {
		s[i] = T(i + 1)
	}
	return s
}

func randomFloats(n int, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed+1))
	s := make([]float64, n)
	for i := range s {
		s[i] = r.Float64()*2 - 1
	}
	return s
}

func testOptions(capacity int) Options {
	opts := DefaultOptions()
	opts.BlockCapacity = capacity
	opts.Trace = true
	return opts
}
