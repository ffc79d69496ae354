// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host device: scan workgroups run as goroutines.
//
// Example:
//
//	engine, err := scan.New[float64](cpu.New(), scan.DefaultOptions())
package cpu

import (
	internalcpu "github.com/born-ml/lookback/internal/backend/cpu"
	"github.com/born-ml/lookback/internal/parallel"
	"github.com/born-ml/lookback/internal/scan"
)

// Backend dispatches scan workgroups onto goroutines.
type Backend = internalcpu.CPUBackend

// Config controls how workgroups are scheduled.
type Config = parallel.Config

// Compile-time check that Backend implements scan.Dispatcher.
var _ scan.Dispatcher = (*Backend)(nil)

// New creates a CPU backend with one worker per CPU.
func New() *Backend {
	return internalcpu.New(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit schedule. A zero
// NumWorkers starts one goroutine per workgroup.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.New(cfg)
}

// DefaultConfig returns one worker per CPU.
func DefaultConfig() Config {
	return parallel.DefaultConfig()
}
