package scan

import "context"

// Kernel is the body of one workgroup invocation. group is the hardware
// index of the invocation within its dispatch.
type Kernel func(ctx context.Context, group int) error

// Dispatcher launches workgroups. Invocations of one dispatch may run in any
// order and concurrently; Dispatch returns once all of them have finished or
// one of them has failed.
type Dispatcher interface {
	Name() string
	// MaxGroupsPerPass bounds groups per Dispatch call; 0 means unbounded.
	MaxGroupsPerPass() int
	Dispatch(ctx context.Context, groups int, kernel Kernel) error
}
