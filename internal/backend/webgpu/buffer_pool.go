//go:build windows

package webgpu

import (
	"math/bits"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPoolSize bounds the idle buffers kept per size class.
const maxPoolSize = 16

// poolKey identifies a size class: buffers are allocated with power-of-two
// sizes so a class serves every request up to its size.
type poolKey struct {
	class uint8
	usage wgpu.BufferUsage
}

// BufferPool recycles the aggregate buffers of reduced levels. Their contents
// are fully written by the reduce kernel before they are read, so reused
// buffers need no clearing.
type BufferPool struct {
	device *wgpu.Device
	idle   map[poolKey][]*wgpu.Buffer
	mu     sync.Mutex

	totalAllocated uint64
	totalReleased  uint64
	poolHits       uint64
	poolMisses     uint64
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		idle:   make(map[poolKey][]*wgpu.Buffer),
	}
}

// sizeClass returns the smallest class whose buffers hold size bytes.
func sizeClass(size uint64) uint8 {
	if size <= 16 {
		return 4
	}
	return uint8(bits.Len64(size - 1)) //nolint:gosec // G115: at most 64.
}

// Acquire gets a buffer of at least size bytes from the pool or creates one.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := poolKey{class: sizeClass(size), usage: usage}
	if idle := p.idle[key]; len(idle) > 0 {
		buffer := idle[len(idle)-1]
		p.idle[key] = idle[:len(idle)-1]
		p.poolHits++
		return buffer
	}

	p.poolMisses++
	p.totalAllocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  uint64(1) << key.class,
	})
}

// Release returns a buffer acquired for size bytes to the pool. If its class
// is full, the buffer is released immediately.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalReleased++
	key := poolKey{class: sizeClass(size), usage: usage}
	if len(p.idle[key]) >= maxPoolSize {
		buffer.Release()
		return
	}
	p.idle[key] = append(p.idle[key], buffer)
}

// Clear releases all pooled buffers.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, idle := range p.idle {
		for _, buffer := range idle {
			buffer.Release()
		}
		delete(p.idle, key)
	}
}

// Stats returns statistics about buffer pool usage.
func (p *BufferPool) Stats() (allocated, released, hits, misses uint64, pooledCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, idle := range p.idle {
		pooledCount += len(idle)
	}
	return p.totalAllocated, p.totalReleased, p.poolHits, p.poolMisses, pooledCount
}
