package sched

import "errors"

// ErrQueueOverflow is returned by ScheduleNormal when inserting the
// record would push the normal queue past its configured capacity. The
// host treats this as fatal, see cmd/timerd.
var ErrQueueOverflow = errors.New("sched: normal queue overflow")

// defaultNormalQueueCap is the reference overflow cap named in the
// scheduler's design: "insane" beyond documented rationale, but kept as
// the default. Override with WithNormalQueueCap.
const defaultNormalQueueCap = 500
