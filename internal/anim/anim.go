// Package anim provides a small helper for high-priority timers that
// must keep advancing at a fixed cadence even while other callbacks are
// running, such as a UI animation frame, the use case that motivates
// the high queue's existence at all.
package anim

import (
	"time"

	"github.com/coreboxmedia/timerd/internal/sched"
	"github.com/coreboxmedia/timerd/internal/timer"
)

// Tick schedules cb to run every interval on scheduler's high-priority
// queue, starting at now+every, and keeps re-scheduling itself after
// each firing for as long as the process runs. The returned Handle
// names only the currently pending occurrence; CancelByTarget(target)
// is the reliable way to stop the whole series, since a new record
// replaces the fired one before the caller could reasonably call
// CancelSpecific on the handle just returned.
func Tick(scheduler *sched.Scheduler, target timer.Target, every time.Duration, cb timer.Func, now time.Time) timer.Handle {
	var self timer.Func
	next := now.Add(every)
	self = func(t timer.Target, args ...any) any {
		ret := cb(t, args...)
		next = next.Add(every)
		scheduler.ScheduleHigh(target, next, self)
		return ret
	}
	return scheduler.ScheduleHigh(target, next, self)
}
