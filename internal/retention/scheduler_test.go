package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerDisabledWithoutSchedule(t *testing.T) {
	f := newSweepFixture(t, 6)
	scheduler := NewScheduler(f.newSweeper(), "", testLoggerFor(t))

	require.NoError(t, scheduler.Start(context.Background()))
	assert.False(t, scheduler.IsRunning())
	assert.Nil(t, scheduler.NextRun())
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	f := newSweepFixture(t, 6)
	scheduler := NewScheduler(f.newSweeper(), "not a cron expr", testLoggerFor(t))

	err := scheduler.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule")
}

func TestSchedulerStartAndStop(t *testing.T) {
	f := newSweepFixture(t, 6)
	scheduler := NewScheduler(f.newSweeper(), "0 3 * * *", testLoggerFor(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, scheduler.Start(ctx))
	assert.True(t, scheduler.IsRunning())

	next := scheduler.NextRun()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	scheduler.Stop()
	assert.False(t, scheduler.IsRunning())
	assert.Nil(t, scheduler.NextRun())
}

func TestSchedulerRunNow(t *testing.T) {
	f := newSweepFixture(t, 6)
	f.seedCompleted(f.category, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	scheduler := NewScheduler(f.newSweeper(), "", testLoggerFor(t))

	now := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	result, err := scheduler.RunNow(contextWithTime(now))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ArchivedCount)
}
