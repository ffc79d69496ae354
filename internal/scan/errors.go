package scan

import (
	"errors"
	"fmt"
	"time"
)

// Common errors.
var (
	ErrDeviceUnavailable  = errors.New("lookback: no compatible parallel execution device")
	ErrBufferSizeMismatch = errors.New("lookback: sequence length does not match buffer capacity")
	ErrStalledLookback    = errors.New("lookback: stalled waiting for predecessor state")
	ErrInvalidOptions     = errors.New("lookback: invalid options")
)

// StallError reports a look-back walk that gave up waiting on a predecessor
// which never published its aggregate. It matches ErrStalledLookback with errors.Is.
type StallError struct {
	Level      int           // recursion level of the stalled pass
	Block      int           // block whose walk stalled
	Waiting    int           // predecessor that stayed Uninitialized
	Iterations int           // spin iterations spent (spin waits only)
	Elapsed    time.Duration // time spent waiting
}

// Error implements the error interface.
func (e *StallError) Error() string {
	if e.Iterations > 0 {
		return fmt.Sprintf("%s: level %d block %d on block %d after %d iterations",
			ErrStalledLookback.Error(), e.Level, e.Block, e.Waiting, e.Iterations)
	}
	return fmt.Sprintf("%s: level %d block %d on block %d after %v",
		ErrStalledLookback.Error(), e.Level, e.Block, e.Waiting, e.Elapsed)
}

// Unwrap lets errors.Is match ErrStalledLookback.
func (e *StallError) Unwrap() error {
	return ErrStalledLookback
}

func errInvalidOption(name string, value any) error {
	return fmt.Errorf("%w: %s = %v", ErrInvalidOptions, name, value)
}
