// Package queue implements the ordered sequence of timer records that
// backs each of the scheduler's two priority levels. A Queue keeps its
// records sorted ascending by fire time, answers "when do I next need
// to wake" in O(1) by reading the head record, and carries the
// reentrancy flag the scheduler's pump loop uses to guard against
// recursive draining.
//
// Queue is not safe for concurrent use: the scheduler that owns it is
// the sole caller, from a single goroutine, by design (see the
// Scheduler doc comment for why no mutex is used here).
package queue

import (
	"sort"
	"time"

	"github.com/coreboxmedia/timerd/internal/timer"
)

// Queue is an ordered sequence of *timer.Record, sorted ascending by
// FireAt, stable on ties.
type Queue struct {
	records []*timer.Record
	seq     uint64
	running bool
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Len returns the number of pending records.
func (q *Queue) Len() int { return len(q.records) }

// Running reports whether this queue is currently being drained by a
// pump pass (the reentrancy guard described in the scheduler package).
func (q *Queue) Running() bool { return q.running }

// SetRunning sets the reentrancy flag. Callers must release it via a
// deferred SetRunning(false) to guarantee it clears on every exit path,
// including a panicking callback.
func (q *Queue) SetRunning(v bool) { q.running = v }

// HeadFireAt returns the fire time of the earliest pending record, and
// true, or the zero value and false if the queue is empty.
func (q *Queue) HeadFireAt() (fireAt time.Time, ok bool) {
	if len(q.records) == 0 {
		return time.Time{}, false
	}
	return q.records[0].FireAt, true
}

// Insert splices rec into the queue at the position that keeps
// q.records sorted ascending by FireAt, preserving insertion order
// among records with equal FireAt. It binary-searches (sort.Search) for
// the first record whose FireAt exceeds rec.FireAt and splices rec in
// just before it, which lands the same index a forward linear scan from
// index 0 would. The splice itself still shifts the tail of the slice;
// at the queue depths (dozens) this scheduler is built for, a heap is
// not needed.
func (q *Queue) Insert(rec *timer.Record) {
	q.seq++
	rec.SetInsertSeq(q.seq)

	i := sort.Search(len(q.records), func(i int) bool {
		return q.records[i].FireAt.After(rec.FireAt)
	})
	q.records = append(q.records, nil)
	copy(q.records[i+1:], q.records[i:])
	q.records[i] = rec
}

// PeekDue returns the head record if it is due at or before now,
// without removing it. The second result is false if the queue is
// empty or the head is not yet due.
func (q *Queue) PeekDue(now time.Time) (*timer.Record, bool) {
	if len(q.records) == 0 {
		return nil, false
	}
	head := q.records[0]
	if head.FireAt.After(now) {
		return nil, false
	}
	return head, true
}

// PopFront removes and returns the head record. It panics if the queue
// is empty; callers must check Len or PeekDue first.
func (q *Queue) PopFront() *timer.Record {
	rec := q.records[0]
	q.records = q.records[1:]
	return rec
}

// RemoveMatching removes every record whose target and callback match,
// returning how many were removed.
func (q *Queue) RemoveMatching(target timer.Target, cb timer.Func) int {
	return q.removeWhere(func(r *timer.Record) bool { return r.Matches(target, cb) }, -1)
}

// RemoveOneMatching removes at most one record matching target and cb,
// returning it and true, or nil and false if none matched.
func (q *Queue) RemoveOneMatching(target timer.Target, cb timer.Func) (*timer.Record, bool) {
	var found *timer.Record
	n := q.removeWhereCapture(func(r *timer.Record) bool { return r.Matches(target, cb) }, 1, &found)
	return found, n == 1
}

// RemoveByTarget removes every record whose target matches, irrespective
// of callback, returning how many were removed.
func (q *Queue) RemoveByTarget(target timer.Target) int {
	return q.removeWhere(func(r *timer.Record) bool { return r.Target == target }, -1)
}

// RemoveHandle removes the record with the given handle, returning it
// and true, or nil and false if not present.
func (q *Queue) RemoveHandle(h timer.Handle) (*timer.Record, bool) {
	for i, r := range q.records {
		if r.Handle == h {
			q.records = append(q.records[:i], q.records[i+1:]...)
			return r, true
		}
	}
	return nil, false
}

// CountMatching counts records matching target and cb without removing
// them.
func (q *Queue) CountMatching(target timer.Target, cb timer.Func) int {
	n := 0
	for _, r := range q.records {
		if r.Matches(target, cb) {
			n++
		}
	}
	return n
}

// Snapshot returns the queue's records in fire-time order, for
// introspection. The returned slice must not be mutated.
func (q *Queue) Snapshot() []*timer.Record {
	return q.records
}

func (q *Queue) removeWhere(match func(*timer.Record) bool, limit int) int {
	return q.removeWhereCapture(match, limit, nil)
}

// removeWhereCapture removes up to limit (or all, if limit < 0) records
// satisfying match, in queue order, optionally capturing the first
// removed record into *first. It preserves the relative order of the
// records that remain.
func (q *Queue) removeWhereCapture(match func(*timer.Record) bool, limit int, first **timer.Record) int {
	if len(q.records) == 0 {
		return 0
	}
	kept := q.records[:0:0]
	removed := 0
	for _, r := range q.records {
		if (limit < 0 || removed < limit) && match(r) {
			removed++
			if first != nil && *first == nil {
				*first = r
			}
			continue
		}
		kept = append(kept, r)
	}
	q.records = kept
	return removed
}

// AdjustAll adds delta to every pending record's FireAt. Sort order is
// preserved because the shift is uniform across all records; the head
// cache needs no separate refresh beyond what HeadFireAt recomputes on
// read, since Queue never stores a duplicate of FireAt outside the
// records themselves.
func (q *Queue) AdjustAll(delta time.Duration) {
	for _, r := range q.records {
		r.FireAt = r.FireAt.Add(delta)
	}
}
