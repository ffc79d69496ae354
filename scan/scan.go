// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package scan computes inclusive prefix sums with a single-pass decoupled
// look-back scan.
//
// The input is split into blocks. Every block publishes its aggregate, then
// walks back over its predecessors' published state until it finds a
// resolved prefix, so each element is read and written once. Sequences whose
// block count exceeds one dispatch are resolved through a ladder of reduced
// levels.
//
// Example:
//
//	import (
//	    "github.com/born-ml/lookback/backend/cpu"
//	    "github.com/born-ml/lookback/scan"
//	)
//
//	func main() {
//	    engine, err := scan.New[float32](cpu.New(), scan.DefaultOptions())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer engine.Close()
//
//	    data := []float32{1, 1, 1, 1}
//	    if err := engine.Scan(context.Background(), data); err != nil {
//	        log.Fatal(err)
//	    }
//	    // data == [1 2 3 4]
//	}
package scan

import (
	internalscan "github.com/born-ml/lookback/internal/scan"
)

// Element is a scalar type the engine can scan.
type Element = internalscan.Element

// Engine runs prefix scans on a Dispatcher.
type Engine[T Element] = internalscan.Engine[T]

// Dispatcher runs workgroup invocations for the engine.
type Dispatcher = internalscan.Dispatcher

// Kernel is the body of one workgroup invocation.
type Kernel = internalscan.Kernel

// Options controls an Engine.
type Options = internalscan.Options

// Strategy selects how levels of the ladder are resolved.
type Strategy = internalscan.Strategy

// ReducerKind selects the block-local scan algorithm.
type ReducerKind = internalscan.ReducerKind

// WaitMode selects how walkers wait on predecessors.
type WaitMode = internalscan.WaitMode

// Tag is the state of a block.
type Tag = internalscan.Tag

// Trace is the per-block record of the last scan.
type Trace = internalscan.Trace

// LevelTrace is one level of a Trace.
type LevelTrace = internalscan.LevelTrace

// CellSnapshot is the final state of one block.
type CellSnapshot = internalscan.CellSnapshot

// Event is streamed to subscribers when a block changes state.
type Event = internalscan.Event

// LevelPlan describes one level of the ladder.
type LevelPlan = internalscan.LevelPlan

// StallError reports a look-back walk that gave up waiting.
type StallError = internalscan.StallError

// Strategies, reducers and wait modes.
const (
	StrategyLookBack = internalscan.StrategyLookBack
	StrategyTwoPass  = internalscan.StrategyTwoPass
	ReduceSerial     = internalscan.ReduceSerial
	ReduceTree       = internalscan.ReduceTree
	WaitNotify       = internalscan.WaitNotify
	WaitSpin         = internalscan.WaitSpin
)

// Block states.
const (
	Uninitialized     = internalscan.Uninitialized
	AggregateKnown    = internalscan.AggregateKnown
	AggregateZero     = internalscan.AggregateZero
	GlobalPrefixKnown = internalscan.GlobalPrefixKnown
	GlobalPrefixZero  = internalscan.GlobalPrefixZero
)

// Errors returned by the engine and the devices.
var (
	ErrDeviceUnavailable  = internalscan.ErrDeviceUnavailable
	ErrBufferSizeMismatch = internalscan.ErrBufferSizeMismatch
	ErrStalledLookback    = internalscan.ErrStalledLookback
	ErrInvalidOptions     = internalscan.ErrInvalidOptions
)

// New creates an Engine on d. It returns ErrDeviceUnavailable when d is nil
// and an error wrapping ErrInvalidOptions when opts are invalid.
func New[T Element](d Dispatcher, opts Options) (*Engine[T], error) {
	return internalscan.New[T](d, opts)
}

// DefaultOptions returns options suited to the host device.
func DefaultOptions() Options {
	return internalscan.DefaultOptions()
}

// Plan returns the ladder a scan of n elements walks through.
func Plan(n int, opts Options) []LevelPlan {
	return internalscan.Plan(n, opts)
}

// Sequential returns the inclusive prefix sum of in, computed serially.
func Sequential[T Element](in []T) []T {
	return internalscan.Sequential(in)
}
