package sched

import "time"

// Recorder receives scheduler instrumentation events. The scheduler
// core stays free of any concrete metrics backend: callers that want
// Prometheus (or anything else) observability inject an implementation,
// the same way Clock and *slog.Logger are injected rather than reached
// for globally. See internal/metrics for the Prometheus-backed Recorder
// cmd/timerd wires in.
type Recorder interface {
	ObservePump(queue string, fired bool, d time.Duration)
	IncFired(queue string)
	IncReentrancyBlocked(queue string)
	IncOverflow()
	IncPastDue(queue string)
	IncSkewAdjustment()
	IncCancelSpecificMiss()
	SetQueueDepth(queue string, depth int)
}

// noopRecorder discards every event. It is the Scheduler's default so
// Recorder is always non-nil and call sites never need a nil check.
type noopRecorder struct{}

func (noopRecorder) ObservePump(string, bool, time.Duration) {}
func (noopRecorder) IncFired(string)                         {}
func (noopRecorder) IncReentrancyBlocked(string)             {}
func (noopRecorder) IncOverflow()                            {}
func (noopRecorder) IncPastDue(string)                       {}
func (noopRecorder) IncSkewAdjustment()                      {}
func (noopRecorder) IncCancelSpecificMiss()                  {}
func (noopRecorder) SetQueueDepth(string, int)               {}

// WithRecorder sets the Recorder the scheduler reports instrumentation
// events to. Defaults to a no-op recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}
