package webgpu

// MemoryStats represents GPU memory usage statistics. Active buffers and
// allocated bytes count the buffers a scan creates for itself; the pool
// counters cover the recycled aggregate buffers.
type MemoryStats struct {
	TotalAllocatedBytes uint64
	PeakMemoryBytes     uint64
	ActiveBuffers       int64
	PoolAllocated       uint64
	PoolReleased        uint64
	PoolHits            uint64
	PoolMisses          uint64
	PooledBuffers       int
}
