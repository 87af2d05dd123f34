//go:build linux

package schedutil

import (
	"fmt"

	"github.com/nullstream/timerq/pkg/logx"
	"golang.org/x/sys/unix"
)

func toUnixPolicy(p Policy) (int, error) {
	switch p {
	case Other:
		return unix.SCHED_OTHER, nil
	case FIFO:
		return unix.SCHED_FIFO, nil
	case RoundRobin:
		return unix.SCHED_RR, nil
	default:
		return 0, fmt.Errorf("schedutil: unknown policy %v", p)
	}
}

// Apply sets the scheduling policy and priority of the calling
// goroutine's current OS thread per params. It does not lock the
// goroutine to that thread; the caller must already hold
// runtime.LockOSThread. It reports false, with a
// logged warning, on any failure rather than returning an error the
// dispatcher would have to act on.
func Apply(log logx.Logger, params Params) bool {
	unixPolicy, err := toUnixPolicy(params.Policy)
	if err != nil {
		log.Warnf("schedutil: %v", err)
		return false
	}

	priority := 0
	if params.Priority != nil {
		priority = *params.Priority
	} else {
		switch params.PriorityTag {
		case MaxPriority:
			priority, err = unix.SchedGetPriorityMax(unixPolicy)
		default:
			priority, err = unix.SchedGetPriorityMin(unixPolicy)
		}
		if err != nil {
			log.Warnf("schedutil: failed to resolve priority for thread %q: %v", params.ThreadTag, err)
			return false
		}
	}

	sched := &unix.SchedParam{Priority: int32(priority)}
	if err := unix.SchedSetscheduler(0, unixPolicy, sched); err != nil {
		log.Warnf("schedutil: failed to set sched params thread=%q policy=%s priority=%d: %v",
			params.ThreadTag, params.Policy, priority, err)
		return false
	}

	log.Infof("schedutil: set sched params thread=%q policy=%s priority=%d", params.ThreadTag, params.Policy, priority)
	return true
}
