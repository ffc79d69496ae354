// Package scan implements an inclusive prefix sum (scan) over numeric sequences
// using the decoupled look-back protocol.
//
// A sequence is split into fixed-size blocks, one per workgroup invocation.
// Every invocation claims a logical block index from a monotonic counter,
// reduces its block locally, publishes the block aggregate into its State Cell
// and then walks the cells of lower-indexed blocks until it has accumulated its
// exclusive global prefix. No barrier between workgroups is needed: the walk
// only trusts resolved predecessors or raw aggregates, so the result depends on
// index order and never on execution order.
//
// When a level has more blocks than one pass can dispatch, the level is reduced
// and its aggregate array becomes the next level of an explicit ladder. The
// ladder is resolved top-down with an add-prefix pass per level. The two-pass
// strategy uses the same ladder for every level and serves as the reference
// implementation of the look-back path.
//
// Workgroups are executed by a Dispatcher; see internal/backend/cpu for the
// host implementation and internal/backend/webgpu for the GPU one.
package scan

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'lookback'.
func tracer() tracing.Trace {
	return tracing.Select("lookback")
}
