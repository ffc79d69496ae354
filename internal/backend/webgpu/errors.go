package webgpu

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/lookback/internal/scan"
)

var (
	// ErrUnsupportedElement is returned for element types WGSL cannot store.
	ErrUnsupportedElement = errors.New("webgpu: unsupported element type")
	// ErrBufferTooLarge is returned when a sequence exceeds the storage binding limit.
	ErrBufferTooLarge = errors.New("webgpu: sequence exceeds the storage binding limit")
)

// elementKind maps a Go element type to its WGSL scalar.
type elementKind struct {
	wgsl   string
	decode func(bits uint32) float64
}

// kindOf returns the WGSL scalar for T. Only 32-bit scalars exist in WGSL.
func kindOf[T scan.Element]() (elementKind, error) {
	var zero T
	switch any(zero).(type) {
	case float32:
		return elementKind{"f32", func(b uint32) float64 { return float64(math.Float32frombits(b)) }}, nil
	case int32:
		return elementKind{"i32", func(b uint32) float64 { return float64(int32(b)) }}, nil //nolint:gosec // G115: bit reinterpretation.
	case uint32:
		return elementKind{"u32", func(b uint32) float64 { return float64(b) }}, nil
	}
	return elementKind{}, fmt.Errorf("%w: %T (want float32, int32 or uint32)", ErrUnsupportedElement, zero)
}
