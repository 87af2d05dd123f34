//go:build !linux

package schedutil

import "github.com/nullstream/timerq/pkg/logx"

// Apply is a no-op stub on platforms without POSIX thread scheduling
// control. It always returns false; the dispatcher continues with
// default scheduling.
func Apply(log logx.Logger, params Params) bool {
	log.Warnf("schedutil: thread scheduling control unsupported on this platform (requested %s for thread %q)",
		params.Policy, params.ThreadTag)
	return false
}
