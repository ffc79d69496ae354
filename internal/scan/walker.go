package scan

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// WaitMode selects how a walker waits on an Uninitialized predecessor.
type WaitMode int

const (
	// WaitNotify blocks on the predecessor's publication channel.
	WaitNotify WaitMode = iota
	// WaitSpin re-reads the predecessor's tag, yielding between reads, the
	// way a GPU workgroup busy-waits.
	WaitSpin
)

func (m WaitMode) String() string {
	switch m {
	case WaitNotify:
		return "notify"
	case WaitSpin:
		return "spin"
	}
	return fmt.Sprintf("WaitMode(%d)", int(m))
}

// ParseWaitMode parses "notify" or "spin".
func ParseWaitMode(s string) (WaitMode, error) {
	switch strings.ToLower(s) {
	case "notify", "":
		return WaitNotify, nil
	case "spin":
		return WaitSpin, nil
	}
	return 0, errInvalidOption("wait", s)
}

// waitPolicy bounds the only blocking point of the protocol.
type waitPolicy struct {
	mode      WaitMode
	spinLimit int           // 0 = unbounded
	timeout   time.Duration // 0 = unbounded
	level     int
}

// lookBack walks the cells before block i and returns the inclusive prefix of
// block i-1, i.e. the exclusive global prefix of block i.
//
// A resolved predecessor ends the walk because its inclusive prefix already
// covers every block before it. Aggregates are accumulated until such a
// predecessor, or block 0, is reached.
func lookBack[T Element](ctx context.Context, cells []Cell[T], i int, w waitPolicy) (T, error) {
	var running T
	for j := i - 1; j >= 0; {
		tag, aggregate, inclusive := cells[j].Load()
		switch tag {
		case GlobalPrefixKnown:
			return running + inclusive, nil
		case GlobalPrefixZero:
			return running, nil
		case AggregateKnown:
			running += aggregate
			j--
		case AggregateZero:
			j--
		default:
			if err := await(ctx, &cells[j], w, i, j); err != nil {
				return running, err
			}
		}
	}
	return running, nil
}

// await blocks until cell j publishes, the context ends, or the wait bound is
// exceeded.
func await[T Element](ctx context.Context, c *Cell[T], w waitPolicy, block, j int) error {
	start := time.Now()
	if w.mode == WaitSpin {
		for it := 1; ; it++ {
			if c.Tag().Published() {
				return nil
			}
			if w.spinLimit > 0 && it >= w.spinLimit {
				err := &StallError{Level: w.level, Block: block, Waiting: j, Iterations: it, Elapsed: time.Since(start)}
				tracer().Errorf("%v", err)
				return err
			}
			if it&63 == 0 {
				if err := ctx.Err(); err != nil {
					return context.Cause(ctx)
				}
				if w.timeout > 0 && time.Since(start) > w.timeout {
					err := &StallError{Level: w.level, Block: block, Waiting: j, Elapsed: time.Since(start)}
					tracer().Errorf("%v", err)
					return err
				}
			}
			runtime.Gosched()
		}
	}

	var expired <-chan time.Time
	if w.timeout > 0 {
		timer := time.NewTimer(w.timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-c.Published():
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-expired:
		err := &StallError{Level: w.level, Block: block, Waiting: j, Elapsed: time.Since(start)}
		tracer().Errorf("%v", err)
		return err
	}
}
