//go:build windows

package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	tracer().Debugf("webgpu: compiling %s", name)
	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader
}

// kernelPipeline is a compiled kernel and the layout of its bind group 0.
type kernelPipeline struct {
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
}

// getOrCreatePipeline returns a cached pipeline or creates a new one. The
// bind group layout is fetched once and released with the pipeline.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) kernelPipeline {
	b.mu.RLock()
	if kp, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return kp
	}
	b.mu.RUnlock()

	// Auto layout: bind group 0 holds exactly the bindings the kernel uses.
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")
	kp := kernelPipeline{pipeline: pipeline, layout: pipeline.GetBindGroupLayout(0)}

	b.mu.Lock()
	b.pipelines[name] = kp
	b.mu.Unlock()

	return kp
}

// pipeline returns the specialised kernel k.
func (b *Backend) pipeline(k kernel, elem string, capacity int) kernelPipeline {
	name := shaderName(k, elem, capacity)
	return b.getOrCreatePipeline(name, b.compileShader(name, shaderSource(k, elem, capacity)))
}

// bindGroup binds entries to group 0 of kp.
func (b *Backend) bindGroup(kp kernelPipeline, entries []wgpu.BindGroupEntry) *wgpu.BindGroup {
	return b.device.CreateBindGroupSimple(kp.layout, entries)
}

// createBuffer creates a GPU buffer holding data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	b.trackBufferAllocation(size)
	return buffer
}

// createZeroBuffer creates a zero-filled storage buffer, as State Cells and
// control words must start Uninitialized.
func (b *Backend) createZeroBuffer(size int) *wgpu.Buffer {
	return b.createBuffer(make([]byte, size), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// releaseBuffer releases a buffer made by createBuffer.
func (b *Backend) releaseBuffer(buffer *wgpu.Buffer, size uint64) {
	if buffer == nil {
		return
	}
	buffer.Release()
	b.trackBufferRelease(size)
}

// readBuffer reads data back from a GPU buffer to CPU memory.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer stagingBuffer.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size)
	if err != nil {
		return nil, fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)

	stagingBuffer.Unmap()

	return result, nil
}
