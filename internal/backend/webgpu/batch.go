//go:build windows

package webgpu

import (
	"github.com/go-webgpu/webgpu/wgpu"
)

// CommandBatch records the passes of one scan into a single command buffer.
// Each pass is its own compute pass, so the writes of a pass are visible to
// every later pass of the batch.
type CommandBatch struct {
	backend *Backend
	encoder *wgpu.CommandEncoder
	passes  []pendingPass
}

// pendingPass is one dispatch waiting to be encoded.
type pendingPass struct {
	name      string // kernel name, for logging
	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup
	params    *wgpu.Buffer
	groups    uint32
}

// NewBatch creates an empty batch.
func (b *Backend) NewBatch() *CommandBatch {
	return &CommandBatch{
		backend: b,
		encoder: b.device.CreateCommandEncoder(nil),
		passes:  make([]pendingPass, 0, 8),
	}
}

// Add queues a dispatch of groups workgroups. The batch owns bindGroup and
// params and releases them after submission.
func (batch *CommandBatch) Add(name string, pipeline *wgpu.ComputePipeline, bindGroup *wgpu.BindGroup, params *wgpu.Buffer, groups int) *CommandBatch {
	batch.passes = append(batch.passes, pendingPass{
		name:      name,
		pipeline:  pipeline,
		bindGroup: bindGroup,
		params:    params,
		groups:    uint32(groups), //nolint:gosec // G115: bounded by maxWorkgroupsPerDimension.
	})
	return batch
}

// Submit encodes every queued pass and submits them at once. The batch is
// consumed and cannot be reused.
func (batch *CommandBatch) Submit() {
	if batch.Count() == 0 {
		return
	}

	for _, p := range batch.passes {
		computePass := batch.encoder.BeginComputePass(nil)
		computePass.SetPipeline(p.pipeline)
		computePass.SetBindGroup(0, p.bindGroup, nil)
		computePass.DispatchWorkgroups(p.groups, 1, 1)
		computePass.End()
	}

	cmdBuffer := batch.encoder.Finish(nil)
	batch.backend.queue.Submit(cmdBuffer)
	tracer().Debugf("webgpu: submitted %d passes", len(batch.passes))

	for _, p := range batch.passes {
		p.bindGroup.Release()
		p.params.Release()
	}
	batch.passes = nil
}

// Count returns the number of queued passes.
func (batch *CommandBatch) Count() int {
	return len(batch.passes)
}
