package scan

import (
	"fmt"
	"strings"
)

// ReducerKind selects how a workgroup scans its own block.
type ReducerKind int

const (
	// ReduceSerial adds the block elements one after another.
	ReduceSerial ReducerKind = iota
	// ReduceTree runs a work-efficient up-sweep/down-sweep over the block, the
	// way lanes of one workgroup cooperate through shared memory.
	ReduceTree
)

func (k ReducerKind) String() string {
	switch k {
	case ReduceSerial:
		return "serial"
	case ReduceTree:
		return "tree"
	}
	return fmt.Sprintf("ReducerKind(%d)", int(k))
}

// ParseReducer parses "serial" or "tree".
func ParseReducer(s string) (ReducerKind, error) {
	switch strings.ToLower(s) {
	case "serial", "":
		return ReduceSerial, nil
	case "tree":
		return ReduceTree, nil
	}
	return 0, errInvalidOption("reducer", s)
}

// ReduceBlock replaces block with its block-local inclusive scan and returns
// the block aggregate. The values are correct up to the block's global prefix,
// which the caller adds once it is resolved.
func ReduceBlock[T Element](block []T, kind ReducerKind) T {
	if len(block) == 0 {
		return 0
	}
	if kind == ReduceTree && len(block) > 1 {
		reduceTree(block)
	} else {
		reduceSerial(block)
	}
	return block[len(block)-1]
}

func reduceSerial[T Element](block []T) {
	for i := 1; i < len(block); i++ {
		block[i] += block[i-1]
	}
}

// reduceTree computes the exclusive scan of block in a power-of-two scratch
// area and adds each element back to make it inclusive.
func reduceTree[T Element](block []T) {
	size := 1
	for size < len(block) {
		size <<= 1
	}
	scratch := make([]T, size)
	copy(scratch, block)

	// Up-sweep: partial sums at the right end of every subtree.
	for d := 1; d < size; d <<= 1 {
		for i := 2*d - 1; i < size; i += 2 * d {
			scratch[i] += scratch[i-d]
		}
	}

	// Down-sweep: push prefixes back down.
	scratch[size-1] = 0
	for d := size >> 1; d >= 1; d >>= 1 {
		for i := 2*d - 1; i < size; i += 2 * d {
			left := scratch[i-d]
			scratch[i-d] = scratch[i]
			scratch[i] += left
		}
	}

	for i := range block {
		block[i] += scratch[i]
	}
}
