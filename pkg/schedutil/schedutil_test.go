package schedutil

import (
	"testing"

	"github.com/nullstream/timerq/pkg/logx"
	"github.com/stretchr/testify/assert"
)

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "SCHED_OTHER", Other.String())
	assert.Equal(t, "SCHED_FIFO", FIFO.String())
	assert.Equal(t, "SCHED_RR", RoundRobin.String())
	assert.Equal(t, "unknown", Policy(99).String())
}

func TestApplyNeverPanics(t *testing.T) {
	log := logx.NewNop()
	priority := 10

	assert.NotPanics(t, func() {
		Apply(log, Params{Policy: FIFO, Priority: &priority, ThreadTag: "test"})
	})
	assert.NotPanics(t, func() {
		Apply(log, Params{Policy: RoundRobin, PriorityTag: MaxPriority, ThreadTag: "test"})
	})
}
