package scan

import "sync/atomic"

// Claimer hands out logical block indices in increasing order, one per
// workgroup invocation, independent of the order in which the device starts
// invocations. Invocations that claim index i have started before every
// invocation claiming a larger index, which is what keeps a bounded pool of
// workers from waiting on a block nobody is running.
type Claimer struct {
	next atomic.Int64
}

// Claim returns the next logical block index.
func (c *Claimer) Claim() int {
	return int(c.next.Add(1) - 1)
}

// Reset rewinds the counter to zero. Call it once per level, before dispatch.
func (c *Claimer) Reset() {
	c.next.Store(0)
}

// Claimed returns how many indices have been handed out.
func (c *Claimer) Claimed() int {
	return int(c.next.Load())
}
