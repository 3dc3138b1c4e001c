// Package timer defines the data held by a scheduled callback: its fire
// time, target identity, callback, captured arguments, and cancellation
// handle. Records are created by the scheduler and never mutated after
// creation except for FireAt under clock-skew adjustment.
package timer

import (
	"reflect"
	"runtime"
	"time"
	"unsafe"

	"github.com/google/uuid"
)

// Target is the opaque caller-supplied identity used to batch-cancel
// timers (typically a client or session handle). Target values must be
// comparable with ==; Unit is the sentinel for "no particular target".
type Target any

// unitTarget is the concrete type behind Unit. A distinct unexported
// type keeps callers from accidentally matching against it.
type unitTarget struct{}

// Unit is the target identity used when a timer is not associated with
// any particular caller. Cancel-by-match calls made with Unit as the
// target, or with a nil callback, fail silently, per the scheduler's
// InvalidArgument policy.
var Unit Target = unitTarget{}

// Func is a scheduled callback. It is invoked as Func(target, args...).
// Its return value is only observed by FireOneMatching, which hands it
// back to the caller; Pump discards it.
type Func func(target Target, args ...any) any

// equal reports whether two Funcs are the same func value, by comparing
// the pointer each holds to its closure. Two distinct closures with
// identical behavior are never equal, even when created from the same
// function literal: cancellation matches on callback identity, not
// behavior.
func (f Func) equal(other Func) bool {
	if f == nil || other == nil {
		return f == nil && other == nil
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(&f)) == *(*unsafe.Pointer)(unsafe.Pointer(&other))
}

// FuncEqual exports the identity comparison used for cancellation
// matching, for callers that need to test it directly (e.g. fire_one_matching
// callers probing whether a callback is already registered).
func FuncEqual(a, b Func) bool {
	return a.equal(b)
}

// Name renders a human-readable identity for a callback, used only by
// ListPending for debugging output.
func (f Func) Name() string {
	if f == nil {
		return "<nil>"
	}
	fn := runtime.FuncForPC(reflect.ValueOf(f).Pointer())
	if fn == nil {
		return "<unknown>"
	}
	return fn.Name()
}

// Handle is an opaque, equality-comparable cancellation token. It is a
// weak reference: holding one does not keep its Record alive, and
// comparing a stale Handle against a live Record's Handle after the
// Record has fired or been cancelled is well-defined (just false). It
// never panics or dereferences freed state.
type Handle struct {
	id uuid.UUID
}

// NewHandle generates a fresh, globally unique Handle.
func NewHandle() Handle {
	return Handle{id: uuid.New()}
}

// String renders the handle for logging.
func (h Handle) String() string {
	return h.id.String()
}

// Record is an immutable (aside from FireAt under skew adjustment)
// scheduled invocation of Callback, created by Scheduler.ScheduleNormal
// or Scheduler.ScheduleHigh and destroyed upon firing or cancellation.
type Record struct {
	FireAt   time.Time
	Target   Target
	Callback Func
	Args     []any
	Handle   Handle

	// insertSeq is the owning queue's insertion counter at the time this
	// Record was inserted. Queue ordering does not read it: ties between
	// equal FireAt values are kept in insertion order by Queue.Insert
	// placing a new Record after every Record with the same FireAt.
	insertSeq uint64
}

// NewRecord constructs a Record with a fresh Handle. insertSeq is
// assigned by the owning queue on insertion, not here.
func NewRecord(fireAt time.Time, target Target, cb Func, args []any) *Record {
	return &Record{
		FireAt:   fireAt,
		Target:   target,
		Callback: cb,
		Args:     args,
		Handle:   NewHandle(),
	}
}

// Matches reports whether this record's target and callback identity
// match the given target and callback.
func (r *Record) Matches(target Target, cb Func) bool {
	return r.Target == target && r.Callback.equal(cb)
}

// InsertSeq returns the record's tie-breaking insertion sequence number.
func (r *Record) InsertSeq() uint64 { return r.insertSeq }

// SetInsertSeq is called exactly once by the owning queue at insertion
// time.
func (r *Record) SetInsertSeq(seq uint64) { r.insertSeq = seq }

// Invoke calls the record's callback with its captured target and args,
// returning whatever the callback returns. It does not recover from a
// panicking callback: per the scheduler's CallbackFault policy, a
// failing callback propagates to the caller of Pump, which is
// responsible for clearing queue reentrancy state via a deferred
// release regardless of outcome.
func (r *Record) Invoke() any {
	return r.Callback(r.Target, r.Args...)
}
