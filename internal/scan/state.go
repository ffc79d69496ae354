package scan

import (
	"fmt"
	"sync/atomic"
)

// Tag is the state of a State Cell. The numeric values are shared with the
// GPU kernels, which store the tag as a u32 word.
type Tag uint32

const (
	// Uninitialized means the block has published nothing yet.
	Uninitialized Tag = iota
	// AggregateKnown means the block aggregate is known, its prefix is not.
	AggregateKnown
	// AggregateZero means the block aggregate is known and equals zero.
	AggregateZero
	// GlobalPrefixKnown means the block's global prefix is resolved.
	GlobalPrefixKnown
	// GlobalPrefixZero means the resolved inclusive prefix equals zero.
	GlobalPrefixZero
)

var tagNames = [...]string{
	Uninitialized:     "Uninitialized",
	AggregateKnown:    "AggregateKnown",
	AggregateZero:     "AggregateZero",
	GlobalPrefixKnown: "GlobalPrefixKnown",
	GlobalPrefixZero:  "GlobalPrefixZero",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", uint32(t))
}

// Published reports whether the block has published at least its aggregate.
func (t Tag) Published() bool {
	return t >= AggregateKnown && t <= GlobalPrefixZero
}

// Resolved reports whether the block's global prefix is known.
func (t Tag) Resolved() bool {
	return t == GlobalPrefixKnown || t == GlobalPrefixZero
}

// Cell is the look-back state of one block.
//
// Payload fields are written before the tag and read after it, so a reader
// that observes a tag also observes the payload that tag describes. Each cell
// is written by its own block only: once for the aggregate, once for the prefix.
type Cell[T Element] struct {
	tag       atomic.Uint32
	aggregate T
	inclusive T // sum of every element up to and including this block
	exclusive T // sum of every element before this block

	published chan struct{} // closed when the aggregate is published
}

func newCells[T Element](n int) []Cell[T] {
	cells := make([]Cell[T], n)
	for i := range cells {
		cells[i].published = make(chan struct{})
	}
	return cells
}

// Tag returns the current tag.
func (c *Cell[T]) Tag() Tag {
	return Tag(c.tag.Load())
}

// Load returns the tag with the payload it makes visible: the aggregate for
// Aggregate* tags, aggregate and inclusive prefix for GlobalPrefix* tags.
func (c *Cell[T]) Load() (tag Tag, aggregate, inclusive T) {
	tag = Tag(c.tag.Load())
	switch tag {
	case AggregateKnown, AggregateZero:
		return tag, c.aggregate, 0
	case GlobalPrefixKnown, GlobalPrefixZero:
		return tag, c.aggregate, c.inclusive
	}
	return tag, 0, 0
}

// Published returns a channel that is closed once the aggregate is published.
func (c *Cell[T]) Published() <-chan struct{} {
	return c.published
}

// PublishAggregate moves the cell from Uninitialized to AggregateKnown, or to
// AggregateZero when v is zero. Publishing twice panics.
func (c *Cell[T]) PublishAggregate(v T) Tag {
	tag := AggregateKnown
	if v == 0 {
		tag = AggregateZero
	}
	c.aggregate = v
	if !c.tag.CompareAndSwap(uint32(Uninitialized), uint32(tag)) {
		panic(fmt.Sprintf("scan: aggregate published over %s", c.Tag()))
	}
	close(c.published)
	return tag
}

// PublishPrefix moves the cell from an Aggregate* tag to GlobalPrefixKnown, or
// to GlobalPrefixZero when the inclusive prefix is zero. It panics unless the
// aggregate has been published and the prefix has not.
func (c *Cell[T]) PublishPrefix(exclusive, inclusive T) Tag {
	from := c.Tag()
	if from != AggregateKnown && from != AggregateZero {
		panic(fmt.Sprintf("scan: prefix published over %s", from))
	}
	tag := GlobalPrefixKnown
	if inclusive == 0 {
		tag = GlobalPrefixZero
	}
	c.exclusive = exclusive
	c.inclusive = inclusive
	if !c.tag.CompareAndSwap(uint32(from), uint32(tag)) {
		panic(fmt.Sprintf("scan: prefix published concurrently over %s", c.Tag()))
	}
	return tag
}

// CellSnapshot is a copy of a cell taken after a pass has completed.
type CellSnapshot struct {
	Tag       Tag
	Aggregate float64
	Prefix    float64 // resolved exclusive prefix
	Inclusive float64
}

// Snapshot copies the cell. It must only be called once the pass that owns
// the cell has returned.
func (c *Cell[T]) Snapshot() CellSnapshot {
	tag, agg, incl := c.Load()
	s := CellSnapshot{Tag: tag, Aggregate: float64(agg)}
	if tag.Resolved() {
		s.Prefix = float64(c.exclusive)
		s.Inclusive = float64(incl)
	}
	return s
}
