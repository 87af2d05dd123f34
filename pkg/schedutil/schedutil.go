// Package schedutil adapts the dispatcher's goroutine to the host OS's
// thread scheduling policies. It is a soft-failure capability: callers
// that care about real-time scheduling may ask for it, but a failure to
// apply it never stops the dispatcher from running with default
// scheduling.
package schedutil

// Policy is a POSIX thread scheduling policy.
type Policy int

const (
	// Other is the default, non-real-time time-sharing policy
	// (SCHED_OTHER).
	Other Policy = iota
	// FIFO is a fixed-priority real-time policy with no time slicing
	// (SCHED_FIFO).
	FIFO
	// RoundRobin is a fixed-priority real-time policy with time slicing
	// among equal-priority threads (SCHED_RR).
	RoundRobin
)

func (p Policy) String() string {
	switch p {
	case Other:
		return "SCHED_OTHER"
	case FIFO:
		return "SCHED_FIFO"
	case RoundRobin:
		return "SCHED_RR"
	default:
		return "unknown"
	}
}

// PriorityTag selects a priority relative to the policy's valid range,
// for callers that don't want to pick an explicit numeric priority.
type PriorityTag int

const (
	// MinPriority resolves to the policy's minimum valid priority.
	MinPriority PriorityTag = iota
	// MaxPriority resolves to the policy's maximum valid priority.
	MaxPriority
)

// Params describes the scheduling parameters requested for the calling
// goroutine's underlying OS thread.
type Params struct {
	Policy Policy

	// Priority, when non-nil, is used verbatim. Otherwise PriorityTag
	// selects the policy's min or max priority.
	Priority    *int
	PriorityTag PriorityTag

	// ThreadTag is used only for log messages.
	ThreadTag string
}
