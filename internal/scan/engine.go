package scan

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/guiguan/caster"
)

// Engine runs prefix scans on a Dispatcher. One Engine runs one scan at a
// time; concurrent calls are serialized.
type Engine[T Element] struct {
	dev  Dispatcher
	opts Options

	mu   sync.Mutex
	last *Trace

	// State Cell transitions are broadcast only while someone listens.
	events      *caster.Caster
	subscribers atomic.Int32
}

// New creates an Engine. It returns ErrDeviceUnavailable when d is nil.
func New[T Element](d Dispatcher, opts Options) (*Engine[T], error) {
	if d == nil {
		return nil, ErrDeviceUnavailable
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if m := d.MaxGroupsPerPass(); m > 0 && m < opts.MaxGroupsPerPass {
		opts.MaxGroupsPerPass = m
	}
	return &Engine[T]{
		dev:    d,
		opts:   opts,
		events: caster.New(nil),
	}, nil
}

// Options returns the effective options, after clamping to the device.
func (e *Engine[T]) Options() Options {
	return e.opts
}

// Device returns the name of the dispatcher.
func (e *Engine[T]) Device() string {
	return e.dev.Name()
}

// level is one rung of the ladder: a sequence, its cells and its claimer.
type level[T Element] struct {
	index    int
	plan     LevelPlan
	capacity int
	data     []T
	cells    []Cell[T]
	claimer  Claimer
}

func (lv *level[T]) block(b int) []T {
	start := b * lv.capacity
	end := min(start+lv.capacity, len(lv.data))
	return lv.data[start:end]
}

// Scan replaces data with its inclusive prefix sum. On error the contents of
// data are unspecified.
func (e *Engine[T]) Scan(ctx context.Context, data []T) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	plan := Plan(len(data), e.opts)
	levels := make([]*level[T], 0, len(plan))
	defer func() {
		if e.opts.Trace {
			e.last = buildTrace(levels)
		} else {
			e.last = nil
		}
	}()

	seq := data
	for k, lp := range plan {
		lv := &level[T]{
			index:    k,
			plan:     lp,
			capacity: e.opts.BlockCapacity,
			data:     seq,
			cells:    newCells[T](lp.Blocks),
		}
		lv.claimer.Reset()
		levels = append(levels, lv)
		tracer().Debugf("scan: level %d: %d elements, %d blocks, %s pass", k, lp.Length, lp.Blocks, lp.Pass)

		switch lp.Pass {
		case PassLookBack:
			err = e.dispatch(ctx, lp.Blocks, e.lookBackKernel(lv))
		case PassReduce:
			upper := make([]T, lp.Blocks)
			err = e.dispatch(ctx, lp.Blocks, e.reduceKernel(lv, upper))
			seq = upper
		}
		if err != nil {
			return err
		}
	}

	// Resolve the ladder top-down. Level k+1 holds the inclusive scan of
	// level k's aggregates once its own pass has finished.
	for k := len(levels) - 2; k >= 0; k-- {
		upper := levels[k+1]
		if err = e.dispatch(ctx, levels[k].plan.Blocks, e.addKernel(levels[k], upper.data)); err != nil {
			return err
		}
		upper.data = nil
	}

	tracer().Infof("scan: %d elements in %d levels on %s", len(data), len(levels), e.dev.Name())
	return nil
}

// ScanInto writes the inclusive prefix sum of src into dst, leaving src
// untouched.
func (e *Engine[T]) ScanInto(ctx context.Context, dst, src []T) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: dst holds %d elements, src %d", ErrBufferSizeMismatch, len(dst), len(src))
	}
	copy(dst, src)
	return e.Scan(ctx, dst)
}

// LastTrace returns the trace of the last scan, or nil unless Options.Trace
// is set.
func (e *Engine[T]) LastTrace() *Trace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Events subscribes to State Cell transitions (values of type Event). The
// subscription ends with ctx or Close. Events are dropped while the channel
// is full; a slow subscriber never holds up a scan.
func (e *Engine[T]) Events(ctx context.Context, capacity uint) (<-chan interface{}, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	ch, ok := e.events.Sub(ctx, capacity)
	if !ok {
		return ch, false
	}
	e.subscribers.Add(1)
	go func() {
		select {
		case <-ctx.Done():
		case <-e.events.Done():
		}
		e.subscribers.Add(-1)
	}()
	return ch, true
}

// Close ends all event subscriptions.
func (e *Engine[T]) Close() {
	e.events.Close()
}

func (e *Engine[T]) publish(lvl, block int, tag Tag) {
	if e.subscribers.Load() > 0 {
		e.events.TryPub(Event{Level: lvl, Block: block, Tag: tag})
	}
}

// dispatch launches one invocation per block, split into dispatches of at
// most MaxGroupsPerPass groups. Look-back passes always fit one dispatch.
func (e *Engine[T]) dispatch(ctx context.Context, blocks int, kernel Kernel) error {
	step := e.opts.MaxGroupsPerPass
	for off := 0; off < blocks; off += step {
		groups := min(step, blocks-off)
		base := off
		err := e.dev.Dispatch(ctx, groups, func(ctx context.Context, g int) error {
			return kernel(ctx, base+g)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine[T]) blockIndex(lv *level[T], group int) int {
	if e.opts.UseClaimer {
		return lv.claimer.Claim()
	}
	return group
}

func (e *Engine[T]) waitPolicy(lvl int) waitPolicy {
	return waitPolicy{
		mode:      e.opts.Wait,
		spinLimit: e.opts.SpinLimit,
		timeout:   e.opts.StallTimeout,
		level:     lvl,
	}
}

// lookBackKernel reduces a block, publishes its aggregate, walks back for
// its prefix, publishes the prefix and applies it.
func (e *Engine[T]) lookBackKernel(lv *level[T]) Kernel {
	wait := e.waitPolicy(lv.index)
	return func(ctx context.Context, group int) error {
		b := e.blockIndex(lv, group)
		block := lv.block(b)
		aggregate := ReduceBlock(block, e.opts.Reducer)
		e.publish(lv.index, b, lv.cells[b].PublishAggregate(aggregate))

		var exclusive T
		if b > 0 {
			var err error
			if exclusive, err = lookBack(ctx, lv.cells, b, wait); err != nil {
				return err
			}
		}
		e.publish(lv.index, b, lv.cells[b].PublishPrefix(exclusive, exclusive+aggregate))
		addPrefix(block, exclusive)
		return nil
	}
}

// reduceKernel reduces a block and stores its aggregate in the next level.
func (e *Engine[T]) reduceKernel(lv *level[T], upper []T) Kernel {
	return func(_ context.Context, group int) error {
		b := e.blockIndex(lv, group)
		aggregate := ReduceBlock(lv.block(b), e.opts.Reducer)
		upper[b] = aggregate
		e.publish(lv.index, b, lv.cells[b].PublishAggregate(aggregate))
		return nil
	}
}

// addKernel applies the resolved prefix from the level above. upper is the
// inclusive scan of this level's aggregates.
func (e *Engine[T]) addKernel(lv *level[T], upper []T) Kernel {
	return func(_ context.Context, b int) error {
		var exclusive T
		if b > 0 {
			exclusive = upper[b-1]
		}
		e.publish(lv.index, b, lv.cells[b].PublishPrefix(exclusive, upper[b]))
		addPrefix(lv.block(b), exclusive)
		return nil
	}
}

func addPrefix[T Element](block []T, prefix T) {
	if prefix == 0 {
		return
	}
	for i := range block {
		block[i] += prefix
	}
}
