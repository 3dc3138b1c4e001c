// Package sched implements the cooperative, single-threaded timer
// scheduler described by the host event loop contract: two independent
// priority queues (high and normal), synchronous callback invocation,
// at-most-one reentrant execution per queue, clock-skew adjustment, and
// identity-based cancellation.
//
// A Scheduler carries no internal locking. Unlike a typical background
// worker pool, it is designed to be driven entirely from one goroutine,
// the host's event loop, which calls Pump after every return from its
// blocking I/O wait. Correctness depends on that single-caller
// discipline, not on mutual exclusion; see the package-level docs in
// internal/queue for the invariants a Queue maintains on its own.
package sched

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/coreboxmedia/timerd/internal/queue"
	"github.com/coreboxmedia/timerd/internal/timer"
)

// Clock is the minimal time source the scheduler needs.
type Clock interface {
	Now() time.Time
}

// Scheduler holds the high and normal priority queues and enforces the
// execution policy described in Pump.
type Scheduler struct {
	clock  Clock
	logger *slog.Logger

	high   *queue.Queue
	normal *queue.Queue

	normalCap     int
	betweenPasses func()
	recorder      Recorder
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithNormalQueueCap overrides the normal queue's overflow cap (default
// 500). A cap of 0 or less is treated as "no cap".
func WithNormalQueueCap(n int) Option {
	return func(s *Scheduler) { s.normalCap = n }
}

// WithLogger sets the logger used for the scheduler's diagnostic
// messages (past-due schedules, reentrancy blocks, cancel-specific
// misses). Defaults to slog.Default() if unset.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithBetweenPasses sets the optional host hook invoked after the
// high-priority drain and before the normal-queue step of Pump. A host
// with no lightweight I/O drain to perform should leave this unset.
func WithBetweenPasses(fn func()) Option {
	return func(s *Scheduler) { s.betweenPasses = fn }
}

// New constructs a Scheduler backed by clk.
func New(clk Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:     clk,
		logger:    slog.Default(),
		high:      queue.New(),
		normal:    queue.New(),
		normalCap: defaultNormalQueueCap,
		recorder:  noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleHigh inserts a record into the high-priority queue. There is
// no capacity limit on this queue: high-priority callbacks are expected
// to be short and latency-critical (e.g. animation frames), and the
// host is trusted not to flood it.
func (s *Scheduler) ScheduleHigh(target timer.Target, fireAt time.Time, cb timer.Func, args ...any) timer.Handle {
	rec := s.newRecord(fireAt, target, cb, args, "high")
	s.high.Insert(rec)
	s.recorder.SetQueueDepth("high", s.high.Len())
	return rec.Handle
}

// ScheduleNormal inserts a record into the normal-priority queue. If
// doing so would make the normal queue exceed its configured capacity
// (default 500), the record is not inserted and ErrQueueOverflow is
// returned. The host should treat this as fatal.
func (s *Scheduler) ScheduleNormal(target timer.Target, fireAt time.Time, cb timer.Func, args ...any) (timer.Handle, error) {
	if s.normalCap > 0 && s.normal.Len() >= s.normalCap {
		s.recorder.IncOverflow()
		return timer.Handle{}, fmt.Errorf("schedule normal timer: %w", ErrQueueOverflow)
	}
	rec := s.newRecord(fireAt, target, cb, args, "normal")
	s.normal.Insert(rec)
	s.recorder.SetQueueDepth("normal", s.normal.Len())
	return rec.Handle, nil
}

func (s *Scheduler) newRecord(fireAt time.Time, target timer.Target, cb timer.Func, args []any, queueName string) *timer.Record {
	rec := timer.NewRecord(fireAt, target, cb, args)
	if fireAt.Before(s.clock.Now()) {
		s.recorder.IncPastDue(queueName)
		s.logger.Info("sched: timer scheduled in the past",
			"fire_at", fireAt,
			"now", s.clock.Now(),
			"callback", cb.Name(),
		)
	}
	return rec
}

// CancelMatching removes every record in both queues whose target and
// callback match, returning how many were removed. It fails silently
// (returns 0) if target is timer.Unit or cb is nil.
func (s *Scheduler) CancelMatching(target timer.Target, cb timer.Func) int {
	if target == timer.Unit || timer.FuncEqual(cb, nil) {
		return 0
	}
	n := s.high.RemoveMatching(target, cb) + s.normal.RemoveMatching(target, cb)
	s.syncDepth()
	return n
}

// CancelOneMatching removes at most one record matching target and cb,
// searching the high queue first, then the normal queue. It reports
// whether a record was found and removed.
func (s *Scheduler) CancelOneMatching(target timer.Target, cb timer.Func) bool {
	if target == timer.Unit || timer.FuncEqual(cb, nil) {
		return false
	}
	if _, ok := s.high.RemoveOneMatching(target, cb); ok {
		s.syncDepth()
		return true
	}
	_, ok := s.normal.RemoveOneMatching(target, cb)
	s.syncDepth()
	return ok
}

// CancelByTarget removes every record in both queues whose target
// matches, irrespective of callback. Unlike CancelMatching and
// CancelOneMatching, timer.Unit carries no special meaning here: a
// record scheduled with timer.Unit as its target can still be
// cancelled by target, since this operation never took a callback
// argument to match against in the first place.
func (s *Scheduler) CancelByTarget(target timer.Target) int {
	n := s.high.RemoveByTarget(target) + s.normal.RemoveByTarget(target)
	s.syncDepth()
	return n
}

// CancelSpecific removes exactly the record named by h, searching both
// queues. It logs a warning and returns false if h names no live
// record: this is the one cancellation outcome the scheduler surfaces
// above silent/zero, since it usually signals a caller bug (double
// cancel, or a handle outliving its record by more than the caller
// expected).
func (s *Scheduler) CancelSpecific(h timer.Handle) bool {
	if _, ok := s.high.RemoveHandle(h); ok {
		s.syncDepth()
		return true
	}
	if _, ok := s.normal.RemoveHandle(h); ok {
		s.syncDepth()
		return true
	}
	s.recorder.IncCancelSpecificMiss()
	s.logger.Warn("sched: cancel_specific missed", "handle", h.String())
	return false
}

// CountMatching counts records matching target and cb across both
// queues without removing them.
func (s *Scheduler) CountMatching(target timer.Target, cb timer.Func) int {
	return s.high.CountMatching(target, cb) + s.normal.CountMatching(target, cb)
}

// FireOneMatching removes the first record matching target and cb
// (high queue searched first, then normal) and invokes its callback
// immediately with its captured args, returning the callback's return
// value and true. It returns nil, false if no record matched.
func (s *Scheduler) FireOneMatching(target timer.Target, cb timer.Func) (any, bool) {
	if rec, ok := s.high.RemoveOneMatching(target, cb); ok {
		s.syncDepth()
		return rec.Invoke(), true
	}
	if rec, ok := s.normal.RemoveOneMatching(target, cb); ok {
		s.syncDepth()
		return rec.Invoke(), true
	}
	return nil, false
}

// syncDepth republishes both queues' current length to the recorder.
// Called after any mutation whose shape (insert vs. remove-N) isn't
// already obvious from a single queue length delta.
func (s *Scheduler) syncDepth() {
	s.recorder.SetQueueDepth("high", s.high.Len())
	s.recorder.SetQueueDepth("normal", s.normal.Len())
}

// TimeUntilNext returns the duration from now until the earliest
// executable record fires, clamped to zero if already overdue. A queue
// currently marked Running is skipped, since a pump of it is already in
// progress. It returns false if neither queue has an eligible
// candidate, in which case the host should block on I/O with no timeout.
func (s *Scheduler) TimeUntilNext(now time.Time) (time.Duration, bool) {
	var best time.Time
	found := false

	consider := func(q *queue.Queue) {
		if q.Running() {
			return
		}
		fireAt, ok := q.HeadFireAt()
		if !ok {
			return
		}
		if !found || fireAt.Before(best) {
			best = fireAt
			found = true
		}
	}
	consider(s.high)
	consider(s.normal)

	if !found {
		return 0, false
	}
	if d := best.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}

// PendingRecord is a debug-only snapshot of a scheduled record, as
// returned by ListPending.
type PendingRecord struct {
	Target       any
	FireAt       time.Time
	CallbackName string
	Handle       timer.Handle
	Queue        string
}

// ListPending returns a snapshot of every pending record in both
// queues, for logging and debugging. It is not used by the scheduler's
// own control flow.
func (s *Scheduler) ListPending() []PendingRecord {
	out := make([]PendingRecord, 0, s.high.Len()+s.normal.Len())
	for _, r := range s.high.Snapshot() {
		out = append(out, pendingFrom(r, "high"))
	}
	for _, r := range s.normal.Snapshot() {
		out = append(out, pendingFrom(r, "normal"))
	}
	return out
}

func pendingFrom(r *timer.Record, queueName string) PendingRecord {
	return PendingRecord{
		Target:       r.Target,
		FireAt:       r.FireAt,
		CallbackName: r.Callback.Name(),
		Handle:       r.Handle,
		Queue:        queueName,
	}
}
