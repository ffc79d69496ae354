package scan

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how levels of the ladder are resolved.
type Strategy int

const (
	// StrategyLookBack resolves a level in a single reduce-and-walk pass
	// whenever its block count fits one dispatch.
	StrategyLookBack Strategy = iota
	// StrategyTwoPass reduces every level with more than one block and
	// propagates prefixes with an add pass per level.
	StrategyTwoPass
)

func (s Strategy) String() string {
	switch s {
	case StrategyLookBack:
		return "lookback"
	case StrategyTwoPass:
		return "twopass"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses "lookback" or "twopass".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "lookback", "look-back", "":
		return StrategyLookBack, nil
	case "twopass", "two-pass":
		return StrategyTwoPass, nil
	}
	return 0, errInvalidOption("strategy", s)
}

// Options controls a scan Engine.
type Options struct {
	BlockCapacity    int           // Elements per workgroup, a power of two >= 2.
	MaxGroupsPerPass int           // Workgroups one dispatch may launch.
	Strategy         Strategy      // Look-back or two-pass.
	Reducer          ReducerKind   // Block-local scan algorithm.
	Wait             WaitMode      // How walkers wait on predecessors.
	SpinLimit        int           // Spin iterations before a stall is reported (WaitSpin).
	StallTimeout     time.Duration // Wait bound before a stall is reported (0 = none).
	UseClaimer       bool          // Claim logical block indices instead of using dispatch order.
	Trace            bool          // Keep a per-block trace of the last scan.
}

// DefaultOptions returns options suited to the host device.
func DefaultOptions() Options {
	return Options{
		BlockCapacity:    128,
		MaxGroupsPerPass: 65535, // WebGPU maxComputeWorkgroupsPerDimension.
		Strategy:         StrategyLookBack,
		Reducer:          ReduceSerial,
		Wait:             WaitNotify,
		SpinLimit:        1 << 22,
		StallTimeout:     10 * time.Second,
		UseClaimer:       true,
	}
}

// Validate reports the first invalid field.
func (o Options) Validate() error {
	if o.BlockCapacity < 2 || o.BlockCapacity&(o.BlockCapacity-1) != 0 {
		return errInvalidOption("BlockCapacity", o.BlockCapacity)
	}
	if o.MaxGroupsPerPass < 1 {
		return errInvalidOption("MaxGroupsPerPass", o.MaxGroupsPerPass)
	}
	if o.Strategy != StrategyLookBack && o.Strategy != StrategyTwoPass {
		return errInvalidOption("Strategy", o.Strategy)
	}
	if o.Reducer != ReduceSerial && o.Reducer != ReduceTree {
		return errInvalidOption("Reducer", o.Reducer)
	}
	if o.Wait != WaitNotify && o.Wait != WaitSpin {
		return errInvalidOption("Wait", o.Wait)
	}
	if o.SpinLimit < 0 {
		return errInvalidOption("SpinLimit", o.SpinLimit)
	}
	if o.StallTimeout < 0 {
		return errInvalidOption("StallTimeout", o.StallTimeout)
	}
	return nil
}
