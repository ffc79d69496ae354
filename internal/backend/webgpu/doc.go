// Package webgpu runs the decoupled look-back scan on a GPU through go-webgpu
// (github.com/go-webgpu/webgpu), a zero-CGO binding of wgpu-native.
//
// The device executes the same level plan as the host engine. Each look-back
// level is one dispatch of the lookback kernel; levels that exceed a single
// dispatch are reduced into the next level and resolved on the way down by the
// add_prefix kernel. Every pass of a scan is recorded into one command buffer.
//
// The GPU device is built on Windows, where wgpu-native is loaded without cgo.
// On other platforms New reports scan.ErrDeviceUnavailable.
package webgpu

import "github.com/npillmayer/schuko/tracing"

func tracer() tracing.Trace {
	return tracing.Select("lookback")
}
