package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/harunnryd/statusrole/internal/config"
	apperrors "github.com/harunnryd/statusrole/internal/errors"
)

type countingRescanner struct {
	calls atomic.Int32
	err   error
}

func (c *countingRescanner) Rescan(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 3, c.err
}

func TestNewScheduler_RejectsBadSchedule(t *testing.T) {
	_, err := NewScheduler(&countingRescanner{}, config.SchedulerConfig{RescanSchedule: "every tuesday"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.ErrInvalidInput))

	_, err = NewScheduler(&countingRescanner{}, config.SchedulerConfig{ShutdownTimeout: "soon"})
	assert.Error(t, err)
}

func TestScheduler_DisabledIsIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := &countingRescanner{}
	s, err := NewScheduler(r, config.SchedulerConfig{})
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	require.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Health(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestScheduler_RunsRescan(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := &countingRescanner{}
	s, err := NewScheduler(r, config.SchedulerConfig{RescanSchedule: "@every 1s", ShutdownTimeout: "2s"})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return !s.LastRun().IsZero() }, time.Second, 10*time.Millisecond)
	assert.NoError(t, s.Health(context.Background()))

	require.NoError(t, s.Stop(context.Background()))
	assert.Error(t, s.Health(context.Background()))
}

func TestScheduler_FailedRescanMarksUnhealthy(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := &countingRescanner{err: errors.New("guild not cached")}
	s, err := NewScheduler(r, config.SchedulerConfig{RescanSchedule: "@every 1s"})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return s.Health(context.Background()) != nil }, 3*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}
