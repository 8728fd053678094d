package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunOnce_RecoversPanics(t *testing.T) {
	s := NewScheduler()
	var ran atomic.Int32
	s.AddJob(Job{Name: "explodes", Interval: time.Hour, Fn: func(context.Context) error { panic("boom") }})
	s.AddJob(Job{Name: "fine", Interval: time.Hour, Fn: func(context.Context) error { ran.Add(1); return nil }})

	errs := s.RunOnce(context.Background())

	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "boom")
	assert.Equal(t, int32(1), ran.Load())
}

func TestScheduler_TimeoutApplied(t *testing.T) {
	s := NewScheduler()
	s.AddJob(Job{Name: "slow", Interval: time.Hour, Timeout: 20 * time.Millisecond, Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	errs := s.RunOnce(context.Background())

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
}

func TestScheduler_RunsNeverOverlap(t *testing.T) {
	s := NewScheduler()
	var running, maxRunning, runs atomic.Int32
	s.AddJob(Job{Name: "tick", Interval: time.Millisecond, Fn: func(context.Context) error {
		n := running.Add(1)
		if n > maxRunning.Load() {
			maxRunning.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		runs.Add(1)
		return nil
	}})

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), maxRunning.Load())
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

type stubReconciler struct {
	calls int
	err   error
}

func (r *stubReconciler) Reconcile(context.Context) (presence.ReconcileResult, error) {
	r.calls++
	return presence.ReconcileResult{}, r.err
}

func TestPresenceJobs_Register(t *testing.T) {
	rec := &stubReconciler{err: errors.New("feed unavailable")}
	s := NewScheduler()
	NewPresenceJobs(rec, time.Minute, time.Second).RegisterJobs(s)

	require.Len(t, s.jobs, 1)
	assert.Equal(t, JobReconcilePresence, s.jobs[0].Name)
	assert.Equal(t, time.Minute, s.jobs[0].Interval)
	assert.Equal(t, time.Second, s.jobs[0].Timeout)

	errs := s.RunOnce(context.Background())
	assert.Equal(t, 1, rec.calls)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "feed unavailable")
}
