//go:build windows

package webgpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/born-ml/lookback/internal/scan"
	"github.com/go-webgpu/webgpu/wgpu"
)

const elementBytes = 4

const (
	dataUsage  = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	upperUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
)

// Scanner runs prefix scans of 32-bit elements on the GPU. The host uploads
// the input, records every pass of the level plan into one command buffer and
// reads back the result, the control words and, when tracing, the cells.
type Scanner[T scan.Element] struct {
	backend *Backend
	opts    scan.Options
	kind    elementKind

	mu   sync.Mutex
	last *scan.Trace
}

// NewScanner validates opts for the device. A zero SpinLimit is replaced by
// the default, since a GPU wait cannot be interrupted from the host.
func NewScanner[T scan.Element](b *Backend, opts scan.Options) (*Scanner[T], error) {
	if b == nil || b.device == nil {
		return nil, scan.ErrDeviceUnavailable
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	kind, err := kindOf[T]()
	if err != nil {
		return nil, err
	}
	opts.MaxGroupsPerPass = min(opts.MaxGroupsPerPass, b.MaxGroupsPerPass())
	if opts.SpinLimit == 0 {
		opts.SpinLimit = scan.DefaultOptions().SpinLimit
	}
	return &Scanner[T]{backend: b, opts: opts, kind: kind}, nil
}

// MemoryStats reports the device buffers of the backend.
func (s *Scanner[T]) MemoryStats() MemoryStats {
	return s.backend.MemoryStats()
}

// Options returns the effective options.
func (s *Scanner[T]) Options() scan.Options {
	return s.opts
}

// Device returns the adapter name.
func (s *Scanner[T]) Device() string {
	return s.backend.Name()
}

// LastTrace returns the trace of the last scan, or nil unless Options.Trace
// is set.
func (s *Scanner[T]) LastTrace() *scan.Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// gpuLevel holds the device buffers of one level of the ladder.
type gpuLevel struct {
	plan    scan.LevelPlan
	data    *wgpu.Buffer
	cells   *wgpu.Buffer
	control *wgpu.Buffer // look-back levels only
}

// Scan replaces data with its inclusive prefix sum.
func (s *Scanner[T]) Scan(ctx context.Context, data []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil

	plan := scan.Plan(len(data), s.opts)
	if len(plan) == 0 {
		return nil
	}
	size := uint64(len(data)) * elementBytes
	if size > maxStorageBinding {
		return fmt.Errorf("%w: %d bytes", ErrBufferTooLarge, size)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	levels := make([]*gpuLevel, 0, len(plan))
	defer func() { s.release(levels) }()

	batch := s.backend.NewBatch()
	levelData := s.backend.createBuffer(bytesOf(data), dataUsage)
	for k, lp := range plan {
		lv := &gpuLevel{
			plan:  lp,
			data:  levelData,
			cells: s.backend.createZeroBuffer(lp.Blocks * cellBytes),
		}
		levels = append(levels, lv)
		tracer().Debugf("webgpu: level %d: %d elements, %d blocks, %s pass", k, lp.Length, lp.Blocks, lp.Pass)

		switch lp.Pass {
		case scan.PassLookBack:
			lv.control = s.backend.createZeroBuffer(controlBytes)
			s.encodeLookBack(batch, lv)
		case scan.PassReduce:
			levelData = s.backend.bufferPool.Acquire(uint64(lp.Blocks)*elementBytes, upperUsage)
			s.encodeBlocks(batch, kernelReduce, lv, levelData)
		}
	}
	for k := len(levels) - 2; k >= 0; k-- {
		s.encodeBlocks(batch, kernelAddPrefix, levels[k], levels[k+1].data)
	}
	tracer().Debugf("webgpu: %d passes over %d levels", batch.Count(), len(levels))
	batch.Submit()

	out, err := s.backend.readBuffer(levels[0].data, size)
	if err != nil {
		return err
	}
	copy(bytesOf(data), out)

	controls, err := s.readControls(levels)
	if err != nil {
		return err
	}
	if s.opts.Trace {
		if s.last, err = s.readTrace(levels, controls); err != nil {
			return err
		}
	}
	for k, ctrl := range controls {
		if ctrl == nil || ctrl[ctrlStalled] == 0 {
			continue
		}
		stall := &scan.StallError{
			Level:      k,
			Block:      int(ctrl[ctrlStalled]) - 1,
			Waiting:    int(ctrl[ctrlWaiting]),
			Iterations: int(ctrl[ctrlSpins]),
		}
		tracer().Errorf("%v", stall)
		return stall
	}

	tracer().Infof("webgpu: %d elements in %d levels on %s", len(data), len(levels), s.backend.Name())
	return nil
}

func (s *Scanner[T]) params(size, base int, claim bool) []byte {
	p := make([]byte, paramBytes)
	binary.LittleEndian.PutUint32(p[0:4], uint32(size))              //nolint:gosec // G115: bounded by maxStorageBinding.
	binary.LittleEndian.PutUint32(p[4:8], uint32(base))              //nolint:gosec // G115: bounded by the block count.
	binary.LittleEndian.PutUint32(p[8:12], uint32(s.opts.SpinLimit)) //nolint:gosec // G115: validated non-negative.
	if claim {
		binary.LittleEndian.PutUint32(p[12:16], 1)
	}
	return p
}

// encodeLookBack queues the single dispatch resolving a look-back level.
func (s *Scanner[T]) encodeLookBack(batch *CommandBatch, lv *gpuLevel) {
	size := uint64(lv.plan.Length) * elementBytes
	kp := s.backend.pipeline(kernelLookBack, s.kind.wgsl, s.opts.BlockCapacity)
	params := s.backend.createUniformBuffer(s.params(lv.plan.Length, 0, s.opts.UseClaimer))
	bindGroup := s.backend.bindGroup(kp, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, lv.data, 0, size),
		wgpu.BufferBindingEntry(1, lv.cells, 0, uint64(lv.plan.Blocks)*cellBytes),
		wgpu.BufferBindingEntry(3, lv.control, 0, controlBytes),
		wgpu.BufferBindingEntry(4, params, 0, paramBytes),
	})
	batch.Add(string(kernelLookBack), kp.pipeline, bindGroup, params, lv.plan.Blocks)
}

// encodeBlocks queues a reduce or add_prefix pass over every block of lv,
// split into dispatches of at most MaxGroupsPerPass workgroups.
func (s *Scanner[T]) encodeBlocks(batch *CommandBatch, k kernel, lv *gpuLevel, upper *wgpu.Buffer) {
	size := uint64(lv.plan.Length) * elementBytes
	kp := s.backend.pipeline(k, s.kind.wgsl, s.opts.BlockCapacity)
	step := s.opts.MaxGroupsPerPass
	for base := 0; base < lv.plan.Blocks; base += step {
		params := s.backend.createUniformBuffer(s.params(lv.plan.Length, base, false))
		bindGroup := s.backend.bindGroup(kp, []wgpu.BindGroupEntry{
			wgpu.BufferBindingEntry(0, lv.data, 0, size),
			wgpu.BufferBindingEntry(1, lv.cells, 0, uint64(lv.plan.Blocks)*cellBytes),
			wgpu.BufferBindingEntry(2, upper, 0, uint64(lv.plan.Blocks)*elementBytes),
			wgpu.BufferBindingEntry(4, params, 0, paramBytes),
		})
		batch.Add(string(k), kp.pipeline, bindGroup, params, min(step, lv.plan.Blocks-base))
	}
}

// readControls reads the control words of every look-back level.
func (s *Scanner[T]) readControls(levels []*gpuLevel) ([][]uint32, error) {
	controls := make([][]uint32, len(levels))
	for k, lv := range levels {
		if lv.control == nil {
			continue
		}
		raw, err := s.backend.readBuffer(lv.control, controlBytes)
		if err != nil {
			return nil, err
		}
		controls[k] = words(raw)
	}
	return controls, nil
}

// readTrace decodes the State Cells of every level.
func (s *Scanner[T]) readTrace(levels []*gpuLevel, controls [][]uint32) (*scan.Trace, error) {
	tr := &scan.Trace{Levels: make([]scan.LevelTrace, len(levels))}
	for k, lv := range levels {
		raw, err := s.backend.readBuffer(lv.cells, uint64(lv.plan.Blocks)*cellBytes)
		if err != nil {
			return nil, err
		}
		w := words(raw)
		cells := make([]scan.CellSnapshot, lv.plan.Blocks)
		for b := range cells {
			cell := w[b*cellWords : (b+1)*cellWords]
			tag := scan.Tag(cell[0])
			snap := scan.CellSnapshot{Tag: tag}
			if tag.Published() {
				snap.Aggregate = s.kind.decode(cell[1])
			}
			if tag.Resolved() {
				snap.Inclusive = s.kind.decode(cell[2])
				snap.Prefix = s.kind.decode(cell[3])
			}
			cells[b] = snap
		}
		claimed := lv.plan.Blocks
		if controls[k] != nil {
			claimed = int(controls[k][ctrlNext])
		}
		tr.Levels[k] = scan.LevelTrace{
			Length:  lv.plan.Length,
			Blocks:  lv.plan.Blocks,
			Pass:    lv.plan.Pass,
			Claimed: claimed,
			Cells:   cells,
		}
	}
	return tr, nil
}

// release frees the buffers of a scan. Aggregate buffers of levels above
// the first go back to the pool.
func (s *Scanner[T]) release(levels []*gpuLevel) {
	for k, lv := range levels {
		if lv == nil {
			continue
		}
		if k == 0 {
			s.backend.releaseBuffer(lv.data, uint64(lv.plan.Length)*elementBytes)
		} else {
			s.backend.bufferPool.Release(lv.data, uint64(lv.plan.Length)*elementBytes, upperUsage)
		}
		s.backend.releaseBuffer(lv.cells, uint64(lv.plan.Blocks)*cellBytes)
		s.backend.releaseBuffer(lv.control, controlBytes)
	}
}

func bytesOf[T scan.Element](data []T) []byte {
	//nolint:gosec // unsafe.Slice for zero-copy view of 32-bit elements
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(data)*elementBytes)
}

func words(raw []byte) []uint32 {
	w := make([]uint32, len(raw)/4)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(raw[4*i:])
	}
	return w
}
