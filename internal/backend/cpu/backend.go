// Package cpu implements the host device: workgroups run as goroutines.
package cpu

import (
	"context"
	"fmt"

	"github.com/born-ml/lookback/internal/parallel"
	"github.com/born-ml/lookback/internal/scan"
)

// CPUBackend dispatches workgroups onto goroutines.
//
// Go's scheduler preempts goroutines, so every started invocation makes
// progress. With a bounded worker pool an invocation still has to wait for a
// worker; the engine's claim counter guarantees that a walker only waits on
// blocks whose invocations have already started.
type CPUBackend struct {
	cfg       parallel.Config
	maxGroups int
	info      Info
}

// New creates a new CPU backend.
func New(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		cfg:  cfg,
		info: DetectInfo(cfg),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	if cpu.cfg.Enabled && cpu.cfg.NumWorkers <= 0 {
		return fmt.Sprintf("CPU (%s, goroutine per workgroup)", cpu.info.Architecture)
	}
	return fmt.Sprintf("CPU (%s, %d workers)", cpu.info.Architecture, cpu.cfg.Workers(cpu.info.NumCPU))
}

// Info returns the host description.
func (cpu *CPUBackend) Info() Info {
	return cpu.info
}

// Config returns the parallel configuration.
func (cpu *CPUBackend) Config() parallel.Config {
	return cpu.cfg
}

// MaxGroupsPerPass returns the dispatch limit; 0 means unbounded.
func (cpu *CPUBackend) MaxGroupsPerPass() int {
	return cpu.maxGroups
}

// SetMaxGroupsPerPass limits the number of workgroups per dispatch, which
// makes the engine build deeper ladders.
func (cpu *CPUBackend) SetMaxGroupsPerPass(n int) {
	cpu.maxGroups = n
}

// Dispatch runs kernel once per workgroup.
func (cpu *CPUBackend) Dispatch(ctx context.Context, groups int, kernel scan.Kernel) error {
	return parallel.Dispatch(ctx, groups, kernel, cpu.cfg)
}

var _ scan.Dispatcher = (*CPUBackend)(nil)
