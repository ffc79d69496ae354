// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the GPU device for prefix scans.
//
// The GPU device runs where wgpu-native can be loaded without cgo (Windows).
// Elsewhere New returns an error wrapping scan.ErrDeviceUnavailable, so
// callers can fall back to the CPU backend:
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    // use cpu.New()
//	}
//	defer gpu.Release()
//
//	scanner, err := webgpu.NewScanner[float32](gpu, scan.DefaultOptions())
package webgpu

import (
	internalwebgpu "github.com/born-ml/lookback/internal/backend/webgpu"
	"github.com/born-ml/lookback/internal/scan"
)

// Backend owns a GPU device and its compiled kernels.
type Backend = internalwebgpu.Backend

// Scanner runs prefix scans of 32-bit elements on the GPU.
type Scanner[T scan.Element] = internalwebgpu.Scanner[T]

// MemoryStats reports the device buffers held by a backend.
type MemoryStats = internalwebgpu.MemoryStats

// ErrUnsupportedElement is returned for element types WGSL cannot store.
var ErrUnsupportedElement = internalwebgpu.ErrUnsupportedElement

// New acquires the default high-performance adapter.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// NewScanner creates a Scanner on b.
func NewScanner[T scan.Element](b *Backend, opts scan.Options) (*Scanner[T], error) {
	return internalwebgpu.NewScanner[T](b, opts)
}

// IsAvailable checks if WebGPU is available on the current system.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
