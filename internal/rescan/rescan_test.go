package rescan_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coreboxmedia/timerd/internal/clock"
	"github.com/coreboxmedia/timerd/internal/rescan"
	"github.com/coreboxmedia/timerd/internal/sched"
)

func TestScanner_RejectsInvalidCronExpression(t *testing.T) {
	_, err := rescan.New("not a cron expression", func() {}, slog.Default())
	require.Error(t, err)
}

func TestScanner_FiresOnScheduleAndReschedulesItself(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewManual(base)
	s := sched.New(clk)

	var runs int
	scanner, err := rescan.New("* * * * *", func() { runs++ }, slog.Default())
	require.NoError(t, err)

	require.NoError(t, scanner.Start(s, clk.Now()))
	require.Len(t, s.ListPending(), 1)

	clk.Advance(time.Minute)
	s.Pump(clk.Now())
	require.Equal(t, 1, runs)
	require.Len(t, s.ListPending(), 1, "a fresh occurrence must be enqueued after firing")

	clk.Advance(time.Minute)
	s.Pump(clk.Now())
	require.Equal(t, 2, runs)
}
