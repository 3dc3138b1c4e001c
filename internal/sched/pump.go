package sched

import "time"

// Pump is the scheduler's execution entry point, invoked by the host's
// event loop every time it returns from its blocking I/O wait. Its
// policy is deliberately asymmetric between the two queues:
//
//  1. If the high queue is already being pumped (reentrancy guard
//     set), return immediately, before anything else below runs: a
//     normal record must never fire while a high-priority drain is
//     still mid-flight further up the call stack. Otherwise drain every
//     due high-priority record, oldest first, invoking callbacks
//     synchronously.
//  2. If any high-priority record fired, return without touching the
//     normal queue: high-priority callbacks may have taken non-trivial
//     time, and the caller must be allowed to service I/O first.
//  3. Between the two passes, call the optional host hook set via
//     WithBetweenPasses.
//  4. Normal pass: if the normal queue is already being pumped, return.
//     Otherwise fire at most one due record.
//
// The normal pass's "at most one per pump" is intentional and differs
// from the high pass's "drain until empty": normal callbacks may
// themselves re-enter the host's I/O pump (and so Pump), and must not
// starve I/O by chaining.
func (s *Scheduler) Pump(now time.Time) {
	if s.high.Running() {
		s.recorder.IncReentrancyBlocked("high")
		s.logger.Info("sched: high queue reentrancy blocked")
		return
	}

	// wallStart measures actual elapsed wall-clock time spent inside
	// Pump, independent of now (the scheduler's, possibly virtual,
	// notion of "current time" used for due-record comparisons).
	wallStart := time.Now()
	firedHigh := s.pumpHigh(now)
	s.recorder.ObservePump("high", firedHigh, time.Since(wallStart))

	if firedHigh {
		return
	}

	if s.betweenPasses != nil {
		s.betweenPasses()
	}

	wallStart = time.Now()
	firedNormal := s.pumpNormalOnce(now)
	s.recorder.ObservePump("normal", firedNormal, time.Since(wallStart))
}

// pumpHigh drains every due record from the high queue, returning
// whether at least one fired. The reentrancy flag is released via
// defer so it clears on every exit path, including a panicking
// callback (see Record.Invoke). Callers must check s.high.Running()
// before calling pumpHigh; Pump does so up front, before this or any
// other pass runs.
func (s *Scheduler) pumpHigh(now time.Time) (fired bool) {
	s.high.SetRunning(true)
	defer func() {
		s.high.SetRunning(false)
		s.recorder.SetQueueDepth("high", s.high.Len())
	}()

	for {
		rec, ok := s.high.PeekDue(now)
		if !ok {
			return fired
		}
		s.high.PopFront()
		rec.Invoke()
		s.recorder.IncFired("high")
		fired = true
	}
}

// pumpNormalOnce fires at most one due record from the normal queue.
// The reentrancy flag is released via defer for the same reason as
// pumpHigh.
func (s *Scheduler) pumpNormalOnce(now time.Time) (fired bool) {
	if s.normal.Running() {
		s.recorder.IncReentrancyBlocked("normal")
		s.logger.Info("sched: normal queue reentrancy blocked")
		return false
	}
	s.normal.SetRunning(true)
	defer func() {
		s.normal.SetRunning(false)
		s.recorder.SetQueueDepth("normal", s.normal.Len())
	}()

	rec, ok := s.normal.PeekDue(now)
	if !ok {
		return false
	}
	s.normal.PopFront()
	rec.Invoke()
	s.recorder.IncFired("normal")
	return true
}
