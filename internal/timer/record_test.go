package timer_test

import (
	"testing"
	"time"

	"github.com/coreboxmedia/timerd/internal/timer"
	"github.com/stretchr/testify/require"
)

func TestFuncEqual_SamePointerEqual(t *testing.T) {
	f := func(timer.Target, ...any) any { return nil }
	require.True(t, timer.FuncEqual(f, f))
}

func TestFuncEqual_DistinctClosuresWithIdenticalBodyAreNotEqual(t *testing.T) {
	makeFn := func() timer.Func {
		return func(timer.Target, ...any) any { return nil }
	}
	require.False(t, timer.FuncEqual(makeFn(), makeFn()))
}

func TestFuncEqual_NilHandling(t *testing.T) {
	require.True(t, timer.FuncEqual(nil, nil))
	f := func(timer.Target, ...any) any { return nil }
	require.False(t, timer.FuncEqual(f, nil))
	require.False(t, timer.FuncEqual(nil, f))
}

func TestHandle_DistinctRecordsGetDistinctHandles(t *testing.T) {
	a := timer.NewRecord(time.Now(), timer.Unit, nil, nil)
	b := timer.NewRecord(time.Now(), timer.Unit, nil, nil)
	require.NotEqual(t, a.Handle, b.Handle)
}

func TestRecord_MatchesTargetAndCallback(t *testing.T) {
	f := func(timer.Target, ...any) any { return nil }
	r := timer.NewRecord(time.Now(), "x", f, nil)

	require.True(t, r.Matches("x", f))
	require.False(t, r.Matches("y", f))
	require.False(t, r.Matches("x", func(timer.Target, ...any) any { return nil }))
}
