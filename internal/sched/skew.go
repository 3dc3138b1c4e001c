package sched

import (
	"time"

	"github.com/coreboxmedia/timerd/internal/queue"
)

// clockSkewAdjuster shifts every pending record in a set of queues by a
// uniform delta, in response to a detected wall-clock jump (NTP
// correction, sleep/resume). It is its own small type, matching the
// scheduler's system overview, which calls this out as a distinct
// component, even though its entire behavior is "call AdjustAll on
// each queue", because it is the single place that enumerates which
// queues skew adjustment touches.
type clockSkewAdjuster struct {
	queues []*queue.Queue
}

func (a clockSkewAdjuster) apply(delta time.Duration) {
	for _, q := range a.queues {
		q.AdjustAll(delta)
	}
}

// AdjustAll adds delta to every pending record's fire time in both
// queues. Sort order is preserved because the same delta is applied
// uniformly to every record. This call is not reentrancy-guarded and
// must not be made from within a callback running inside Pump.
func (s *Scheduler) AdjustAll(delta time.Duration) {
	adjuster := clockSkewAdjuster{queues: []*queue.Queue{s.high, s.normal}}
	adjuster.apply(delta)
	s.recorder.IncSkewAdjustment()
}
