//go:build windows

package webgpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/lookback/internal/scan"
	"github.com/go-webgpu/webgpu/wgpu"
)

// maxWorkgroupsPerDimension is the WebGPU default limit on workgroups per
// dispatch dimension.
const maxWorkgroupsPerDimension = 65535

// maxStorageBinding is the WebGPU default maxStorageBufferBindingSize.
const maxStorageBinding = 128 << 20

// Backend owns a GPU device and its compiled scan kernels.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]kernelPipeline
	mu        sync.RWMutex

	adapterInfo *wgpu.AdapterInfo

	// Aggregate buffers of reduced levels are recycled between scans.
	bufferPool *BufferPool

	memoryStats struct {
		totalAllocatedBytes uint64
		peakMemoryBytes     uint64
		activeBuffers       int64
		mu                  sync.RWMutex
	}
}

// New acquires the high-performance adapter and its device. It returns an
// error wrapping scan.ErrDeviceUnavailable when WebGPU cannot be initialized.
func New() (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("%w: webgpu: native library not available: %v", scan.ErrDeviceUnavailable, r)
			tracer().Errorf("%v", err)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu: failed to request adapter: %w", scan.ErrDeviceUnavailable, adapterErr)
	}

	adapterInfo := adapter.GetInfo()

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu: failed to request device: %w", scan.ErrDeviceUnavailable, deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu: failed to get queue", scan.ErrDeviceUnavailable)
	}

	b := &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]kernelPipeline),
		adapterInfo: &adapterInfo,
		bufferPool:  NewBufferPool(device),
	}
	tracer().Infof("webgpu: using %s", b.Name())
	return b, nil
}

// Release releases all WebGPU resources.
// Must be called when the backend is no longer needed.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bufferPool != nil {
		b.bufferPool.Clear()
		b.bufferPool = nil
	}
	for _, p := range b.pipelines {
		p.layout.Release()
		p.pipeline.Release()
	}
	b.pipelines = nil
	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the device name.
func (b *Backend) Name() string {
	if b.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Device, b.adapterInfo.Vendor)
	}
	return "WebGPU"
}

// MaxGroupsPerPass returns the number of workgroups one dispatch may launch.
func (b *Backend) MaxGroupsPerPass() int {
	return maxWorkgroupsPerDimension
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// ListAdapters describes the default adapter. WebGPU has no way to
// enumerate every adapter.
func ListAdapters() (adapters []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			adapters = nil
			err = fmt.Errorf("%w: webgpu: native library not available: %v", scan.ErrDeviceUnavailable, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, adapterErr := instance.RequestAdapter(nil)
	if adapterErr != nil {
		return nil, fmt.Errorf("%w: webgpu: no adapters available: %w", scan.ErrDeviceUnavailable, adapterErr)
	}
	defer adapter.Release()

	info := adapter.GetInfo()
	return []string{fmt.Sprintf("%s (%s, %s, backend %v, type %v)",
		info.Device, info.Vendor, info.Description, info.BackendType, info.AdapterType)}, nil
}

// MemoryStats returns current GPU memory usage statistics.
func (b *Backend) MemoryStats() MemoryStats {
	b.memoryStats.mu.RLock()
	stats := MemoryStats{
		TotalAllocatedBytes: b.memoryStats.totalAllocatedBytes,
		PeakMemoryBytes:     b.memoryStats.peakMemoryBytes,
		ActiveBuffers:       b.memoryStats.activeBuffers,
	}
	b.memoryStats.mu.RUnlock()

	stats.PoolAllocated, stats.PoolReleased, stats.PoolHits, stats.PoolMisses, stats.PooledBuffers = b.bufferPool.Stats()
	return stats
}

func (b *Backend) trackBufferAllocation(size uint64) {
	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()

	b.memoryStats.totalAllocatedBytes += size
	b.memoryStats.activeBuffers++
	b.memoryStats.peakMemoryBytes = max(b.memoryStats.peakMemoryBytes, b.memoryStats.totalAllocatedBytes)
}

func (b *Backend) trackBufferRelease(size uint64) {
	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()

	if b.memoryStats.totalAllocatedBytes >= size {
		b.memoryStats.totalAllocatedBytes -= size
	}
	b.memoryStats.activeBuffers--
}
