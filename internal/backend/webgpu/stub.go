//go:build !windows

package webgpu

import (
	"context"
	"fmt"

	"github.com/born-ml/lookback/internal/scan"
)

// Backend is unavailable on this platform.
type Backend struct{}

// New reports scan.ErrDeviceUnavailable.
func New() (*Backend, error) {
	err := fmt.Errorf("%w: webgpu: the GPU device is built on windows only", scan.ErrDeviceUnavailable)
	tracer().Infof("%v", err)
	return nil, err
}

// Release is a no-op.
func (b *Backend) Release() {}

// Name returns the device name.
func (b *Backend) Name() string { return "WebGPU (unavailable)" }

// MaxGroupsPerPass returns 0.
func (b *Backend) MaxGroupsPerPass() int { return 0 }

// MemoryStats returns zero statistics.
func (b *Backend) MemoryStats() MemoryStats { return MemoryStats{} }

// IsAvailable reports false.
func IsAvailable() bool { return false }

// ListAdapters reports scan.ErrDeviceUnavailable.
func ListAdapters() ([]string, error) {
	return nil, fmt.Errorf("%w: webgpu: no adapters on this platform", scan.ErrDeviceUnavailable)
}

// Scanner is unavailable on this platform.
type Scanner[T scan.Element] struct{}

// NewScanner checks the element type, then reports scan.ErrDeviceUnavailable.
func NewScanner[T scan.Element](_ *Backend, opts scan.Options) (*Scanner[T], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if _, err := kindOf[T](); err != nil {
		return nil, err
	}
	return nil, scan.ErrDeviceUnavailable
}

// Scan reports scan.ErrDeviceUnavailable.
func (s *Scanner[T]) Scan(context.Context, []T) error { return scan.ErrDeviceUnavailable }

// Options returns zero options.
func (s *Scanner[T]) Options() scan.Options { return scan.Options{} }

// Device returns the device name.
func (s *Scanner[T]) Device() string { return "WebGPU (unavailable)" }

// MemoryStats returns zero statistics.
func (s *Scanner[T]) MemoryStats() MemoryStats { return MemoryStats{} }

// LastTrace returns nil.
func (s *Scanner[T]) LastTrace() *scan.Trace { return nil }
