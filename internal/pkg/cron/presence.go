package cron

import (
	"context"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
)

const JobReconcilePresence = "reconcile_presence"

type PresenceJobs struct {
	reconciler  presence.Reconciler
	cadence     time.Duration
	passTimeout time.Duration
}

func NewPresenceJobs(reconciler presence.Reconciler, cadence, passTimeout time.Duration) *PresenceJobs {
	return &PresenceJobs{
		reconciler:  reconciler,
		cadence:     cadence,
		passTimeout: passTimeout,
	}
}

func (j *PresenceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:     JobReconcilePresence,
		Interval: j.cadence,
		Timeout:  j.passTimeout,
		Fn:       j.ReconcilePresence,
	})
}

// ReconcilePresence runs one reconciliation pass. The reconciler logs its
// own summary; only the error travels back to the scheduler.
func (j *PresenceJobs) ReconcilePresence(ctx context.Context) error {
	_, err := j.reconciler.Reconcile(ctx)
	return err
}
