package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reverseDispatcher runs every invocation of a dispatch on the calling
// goroutine, last group first. It is the worst case a single resident
// workgroup can see.
type reverseDispatcher struct{}

func (reverseDispatcher) Name() string          { return "reverse" }
func (reverseDispatcher) MaxGroupsPerPass() int { return 0 }

func (reverseDispatcher) Dispatch(ctx context.Context, groups int, kernel Kernel) error {
	for g := groups - 1; g >= 0; g-- {
		if err := kernel(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func newEngine[T Element](t *testing.T, d Dispatcher, opts Options) *Engine[T] {
	t.Helper()
	e, err := New[T](d, opts)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestScan_SixteenOnes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "lookback")
	defer teardown()

	e := newEngine[float32](t, concurrent(), testOptions(4))
	data := ones[float32](16)
	require.NoError(t, e.Scan(context.Background(), data))
	assert.Equal(t, iota1[float32](16), data)

	tr := e.LastTrace()
	require.NotNil(t, tr)
	require.Equal(t, 1, tr.Depth())
	lv := tr.Levels[0]
	assert.Equal(t, 4, lv.Blocks)
	assert.Equal(t, 4, lv.Claimed)
	for b, c := range lv.Cells {
		assert.Equal(t, GlobalPrefixKnown, c.Tag, "block %d", b)
		assert.Equal(t, float64(4), c.Aggregate, "block %d", b)
		assert.Equal(t, float64(4*b), c.Prefix, "block %d", b)
		assert.Equal(t, float64(4*b+4), c.Inclusive, "block %d", b)
	}
}

func TestScan_SixteenOnesTwoPass(t *testing.T) {
	opts := testOptions(4)
	opts.Strategy = StrategyTwoPass
	e := newEngine[float32](t, concurrent(), opts)
	data := ones[float32](16)
	require.NoError(t, e.Scan(context.Background(), data))
	assert.Equal(t, iota1[float32](16), data)

	tr := e.LastTrace()
	require.Equal(t, 2, tr.Depth())
	assert.Equal(t, PassReduce, tr.Levels[0].Pass)
	assert.Equal(t, PassLookBack, tr.Levels[1].Pass)
	assert.Equal(t, float64(16), tr.Levels[1].Cells[0].Aggregate)
	assert.Equal(t, float64(16), tr.Levels[1].Cells[0].Inclusive)
	for b, c := range tr.Levels[0].Cells {
		assert.Equal(t, float64(4*b), c.Prefix, "block %d", b)
	}
	assert.True(t, tr.AllResolved())
}

func TestScan_Boundaries(t *testing.T) {
	const capacity = 8
	for _, n := range []int{0, 1, capacity - 1, capacity, capacity + 1, 3*capacity + 5} {
		for _, strategy := range []Strategy{StrategyLookBack, StrategyTwoPass} {
			opts := testOptions(capacity)
			opts.Strategy = strategy
			e := newEngine[int64](t, concurrent(), opts)
			data := iota1[int64](n)
			want := Sequential(data)
			require.NoError(t, e.Scan(context.Background(), data), "n=%d %s", n, strategy)
			assert.Equal(t, want, data, "n=%d %s", n, strategy)
			if n == 0 {
				assert.Zero(t, e.LastTrace().Depth())
				continue
			}
			tr := e.LastTrace()
			assert.True(t, tr.AllResolved(), "n=%d %s", n, strategy)
			assert.Equal(t, BlockCount(n, capacity), tr.Levels[0].Blocks)
		}
	}
}

func TestScan_TailBlock(t *testing.T) {
	e := newEngine[float64](t, concurrent(), testOptions(4))
	data := ones[float64](5)
	require.NoError(t, e.Scan(context.Background(), data))
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, data)
	cells := e.LastTrace().Levels[0].Cells
	require.Len(t, cells, 2)
	assert.Equal(t, float64(1), cells[1].Aggregate)
	assert.Equal(t, float64(4), cells[1].Prefix)
}

func TestScan_Recursion(t *testing.T) {
	twopass := testOptions(4)
	twopass.Strategy = StrategyTwoPass
	narrow := testOptions(4)
	narrow.MaxGroupsPerPass = 1

	for name, opts := range map[string]Options{"twopass": twopass, "lookback narrow": narrow} {
		t.Run(name, func(t *testing.T) {
			e := newEngine[float32](t, concurrent(), opts)
			data := ones[float32](64)
			require.NoError(t, e.Scan(context.Background(), data))
			assert.Equal(t, iota1[float32](64), data)

			tr := e.LastTrace()
			require.Equal(t, 3, tr.Depth())
			for k, blocks := range []int{16, 4, 1} {
				assert.Equal(t, blocks, tr.Levels[k].Blocks, "level %d", k)
				assert.Equal(t, blocks, tr.Levels[k].Claimed, "level %d", k)
			}
			assert.True(t, tr.AllResolved())
		})
	}
}

func TestScan_DeviceLimitSplitsDispatches(t *testing.T) {
	d := concurrent()
	d.maxGroups = 3
	opts := testOptions(4)
	opts.Strategy = StrategyTwoPass
	e := newEngine[int32](t, d, opts)
	assert.Equal(t, 3, e.Options().MaxGroupsPerPass)

	data := iota1[int32](100)
	want := Sequential(data)
	require.NoError(t, e.Scan(context.Background(), data))
	assert.Equal(t, want, data)
	assert.True(t, e.LastTrace().AllResolved())
}

func TestScan_RandomFloatsMatchReference(t *testing.T) {
	opts := DefaultOptions()
	opts.BlockCapacity = 64
	for _, reducer := range []ReducerKind{ReduceSerial, ReduceTree} {
		opts.Reducer = reducer
		e := newEngine[float64](t, concurrent(), opts)
		data := randomFloats(10_000, 3)
		want := Sequential(data)
		require.NoError(t, e.Scan(context.Background(), data))
		assert.Equal(t, -1, Mismatch(data, want, 1e-9, 1e-9), "reducer %s", reducer)
	}
}

func TestScan_ExactIntegers(t *testing.T) {
	opts := testOptions(32)
	e := newEngine[uint32](t, shuffled(11, 4), opts)
	data := iota1[uint32](5000)
	want := Sequential(data)
	require.NoError(t, e.Scan(context.Background(), data))
	assert.Equal(t, want, data)
}

func TestScan_DeterministicUnderShuffle(t *testing.T) {
	input := randomFloats(4096, 9)
	want := Sequential(input)

	var first []float64
	for seed := uint64(1); seed <= 8; seed++ {
		for _, workers := range []int{1, 2, 4, 0} {
			opts := testOptions(16)
			e := newEngine[float64](t, shuffled(seed, workers), opts)
			data := append([]float64(nil), input...)
			require.NoError(t, e.Scan(context.Background(), data), "seed %d workers %d", seed, workers)
			require.Equal(t, -1, Mismatch(data, want, 1e-9, 1e-9), "seed %d workers %d", seed, workers)
			if first == nil {
				first = data
				continue
			}
			assert.Equal(t, -1, Mismatch(data, first, 1e-9, 1e-9), "seed %d workers %d", seed, workers)
			assert.True(t, e.LastTrace().AllResolved())
		}
	}
}

func TestScan_SpinWait(t *testing.T) {
	opts := testOptions(8)
	opts.Wait = WaitSpin
	e := newEngine[int64](t, shuffled(5, 0), opts)
	data := iota1[int64](1000)
	want := Sequential(data)
	require.NoError(t, e.Scan(context.Background(), data))
	assert.Equal(t, want, data)
}

func TestScan_ZeroTags(t *testing.T) {
	opts := testOptions(4)
	e := newEngine[int32](t, concurrent(), opts)
	events, ok := e.Events(context.Background(), 64)
	require.True(t, ok)

	data := []int32{1, 1, 1, 1, 1, -1, 1, -1, -4, 0, 0, 0}
	require.NoError(t, e.Scan(context.Background(), data))
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 4, 5, 4, 0, 0, 0, 0}, data)

	cells := e.LastTrace().Levels[0].Cells
	assert.Equal(t, GlobalPrefixKnown, cells[0].Tag)
	assert.Equal(t, GlobalPrefixKnown, cells[1].Tag)
	assert.Equal(t, float64(0), cells[1].Aggregate)
	assert.Equal(t, GlobalPrefixZero, cells[2].Tag)

	seen := make(map[Event]bool)
	timeout := time.After(2 * time.Second)
	for len(seen) < 6 {
		select {
		case m := <-events:
			seen[m.(Event)] = true
		case <-timeout:
			t.Fatalf("got %d of 6 events: %v", len(seen), seen)
		}
	}
	assert.True(t, seen[Event{Level: 0, Block: 0, Tag: AggregateKnown}])
	assert.True(t, seen[Event{Level: 0, Block: 1, Tag: AggregateZero}])
	assert.True(t, seen[Event{Level: 0, Block: 2, Tag: AggregateKnown}])
	assert.True(t, seen[Event{Level: 0, Block: 2, Tag: GlobalPrefixZero}])
}

func TestScan_StalledSubscriberDoesNotBlock(t *testing.T) {
	e := newEngine[float32](t, concurrent(), testOptions(4))
	events, ok := e.Events(context.Background(), 1)
	require.True(t, ok)

	done := make(chan error, 1)
	data := ones[float32](64)
	go func() { done <- e.Scan(context.Background(), data) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scan blocked on an undrained event subscriber")
	}
	assert.Equal(t, iota1[float32](64), data)
	assert.Len(t, events, 1)
}

func TestEvents_SubscriptionEndsWithContext(t *testing.T) {
	e := newEngine[int32](t, concurrent(), testOptions(4))
	ctx, cancel := context.WithCancel(context.Background())
	_, ok := e.Events(ctx, 8)
	require.True(t, ok)
	assert.Equal(t, int32(1), e.subscribers.Load())

	cancel()
	assert.Eventually(t, func() bool { return e.subscribers.Load() == 0 }, 2*time.Second, time.Millisecond)
	require.NoError(t, e.Scan(context.Background(), ones[int32](16)))
}

func TestScan_AllZeros(t *testing.T) {
	e := newEngine[float32](t, concurrent(), testOptions(4))
	data := make([]float32, 20)
	require.NoError(t, e.Scan(context.Background(), data))
	assert.Equal(t, make([]float32, 20), data)
	for _, c := range e.LastTrace().Levels[0].Cells {
		assert.Equal(t, GlobalPrefixZero, c.Tag)
	}
}

func TestScan_ClaimerAvoidsStall(t *testing.T) {
	opts := testOptions(4)
	opts.StallTimeout = time.Second
	e := newEngine[int64](t, reverseDispatcher{}, opts)
	data := ones[int64](32)
	require.NoError(t, e.Scan(context.Background(), data))
	assert.Equal(t, iota1[int64](32), data)
}

func TestScan_StallWithoutClaimer(t *testing.T) {
	for _, mode := range []WaitMode{WaitNotify, WaitSpin} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := testOptions(4)
			opts.UseClaimer = false
			opts.Wait = mode
			opts.SpinLimit = 0
			opts.StallTimeout = 50 * time.Millisecond
			e := newEngine[int64](t, reverseDispatcher{}, opts)

			err := e.Scan(context.Background(), ones[int64](32))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStalledLookback)
			var stall *StallError
			require.True(t, errors.As(err, &stall))
			assert.Equal(t, 7, stall.Block)
			assert.Equal(t, 6, stall.Waiting)
			assert.False(t, e.LastTrace().AllResolved())
		})
	}
}

func TestScan_Canceled(t *testing.T) {
	e := newEngine[float32](t, concurrent(), testOptions(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Scan(ctx, ones[float32](64))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanInto(t *testing.T) {
	e := newEngine[float64](t, concurrent(), testOptions(4))
	src := ones[float64](10)
	dst := make([]float64, 10)
	require.NoError(t, e.ScanInto(context.Background(), dst, src))
	assert.Equal(t, iota1[float64](10), dst)
	assert.Equal(t, ones[float64](10), src)

	err := e.ScanInto(context.Background(), make([]float64, 9), src)
	assert.ErrorIs(t, err, ErrBufferSizeMismatch)
}

func TestNew_Errors(t *testing.T) {
	_, err := New[float32](nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)

	opts := DefaultOptions()
	opts.BlockCapacity = 100
	_, err = New[float32](concurrent(), opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestScan_TraceDisabled(t *testing.T) {
	opts := DefaultOptions()
	e := newEngine[float32](t, concurrent(), opts)
	require.NoError(t, e.Scan(context.Background(), ones[float32](300)))
	assert.Nil(t, e.LastTrace())
	assert.Equal(t, "test host", e.Device())
}
