// Package rescan implements the daemon's periodic virtual-library
// folder rescan, expressed as a self-rescheduling normal-priority timer
// rather than its own goroutine and ticker. It stands in for
// slimserver's background media-folder rescan.
package rescan

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/coreboxmedia/timerd/internal/sched"
	"github.com/coreboxmedia/timerd/internal/timer"
)

// target is the rescan timer's sentinel target, distinguishing its
// records from any other caller's in CancelByTarget/CountMatching.
type rescanTarget struct{}

var target timer.Target = rescanTarget{}

// Scanner folds a rescan cron schedule and callback into a single
// self-rescheduling normal-priority timer.
type Scanner struct {
	schedule cron.Schedule
	fn       func()
	logger   *slog.Logger
}

// New parses cronExpr as a standard five-field cron expression and
// returns a Scanner that invokes fn on each occurrence. cronExpr is
// validated eagerly so configuration mistakes surface at startup.
func New(cronExpr string, fn func(), logger *slog.Logger) (*Scanner, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse rescan cron expression %q: %w", cronExpr, err)
	}
	return &Scanner{
		schedule: schedule,
		fn:       fn,
		logger:   logger.With("component", "rescan"),
	}, nil
}

// Start enqueues the first occurrence on s's normal queue. Each firing
// runs fn synchronously, then computes and enqueues the next
// occurrence from the fire time of the occurrence that just ran (see
// tick). Only this first occurrence is computed from now.
func (s *Scanner) Start(scheduler *sched.Scheduler, now time.Time) error {
	fireAt := s.schedule.Next(now)
	_, err := scheduler.ScheduleNormal(target, fireAt, s.tick, scheduler, fireAt)
	if err != nil {
		return fmt.Errorf("schedule initial rescan: %w", err)
	}
	return nil
}

// tick runs the rescan callback, then computes and enqueues the next
// occurrence from its own scheduled fire time rather than time.Now, so
// the cadence tracks the scheduler's clock, including a virtual one in
// tests, the same way the original dispatcher recomputed a schedule's
// next run after firing it.
func (s *Scanner) tick(_ timer.Target, args ...any) any {
	scheduler := args[0].(*sched.Scheduler)
	firedAt := args[1].(time.Time)

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("rescan callback panicked", "panic", r)
			}
		}()
		s.fn()
	}()

	next := s.schedule.Next(firedAt)
	if _, err := scheduler.ScheduleNormal(target, next, s.tick, scheduler, next); err != nil {
		s.logger.Error("failed to reschedule rescan", "error", err)
	}
	return nil
}
