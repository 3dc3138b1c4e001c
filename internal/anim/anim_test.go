package anim_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coreboxmedia/timerd/internal/anim"
	"github.com/coreboxmedia/timerd/internal/clock"
	"github.com/coreboxmedia/timerd/internal/sched"
	"github.com/coreboxmedia/timerd/internal/timer"
)

var frameTarget timer.Target = struct{}{}

func TestTick_FiresEveryIntervalAndReschedulesItself(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewManual(base)
	s := sched.New(clk)

	var frames int
	cb := func(timer.Target, ...any) any {
		frames++
		return nil
	}

	anim.Tick(s, frameTarget, 16*time.Millisecond, cb, base)
	require.Equal(t, 1, countPendingFor(s, frameTarget))

	for i := 0; i < 5; i++ {
		clk.Advance(16 * time.Millisecond)
		s.Pump(clk.Now())
	}

	require.Equal(t, 5, frames)
	require.Equal(t, 1, countPendingFor(s, frameTarget), "exactly one pending occurrence survives each firing")
}

func countPendingFor(s *sched.Scheduler, target timer.Target) int {
	n := 0
	for _, p := range s.ListPending() {
		if p.Target == target {
			n++
		}
	}
	return n
}

func TestTick_StopsWhenCanceledByTarget(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewManual(base)
	s := sched.New(clk)

	var frames int
	cb := func(timer.Target, ...any) any {
		frames++
		return nil
	}

	anim.Tick(s, frameTarget, 10*time.Millisecond, cb, base)

	clk.Advance(10 * time.Millisecond)
	s.Pump(clk.Now())
	require.Equal(t, 1, frames)

	require.Equal(t, 1, s.CancelByTarget(frameTarget))

	clk.Advance(10 * time.Millisecond)
	s.Pump(clk.Now())
	require.Equal(t, 1, frames, "canceled series must not fire again")
}
