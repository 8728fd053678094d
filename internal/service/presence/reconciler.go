package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/directory"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/batch"
	"github.com/google/uuid"
)

// PassObserver is told about every finished pass, including failed ones.
type PassObserver interface {
	ObservePass(result presence.ReconcileResult, err error)
}

type ReconcilerConfig struct {
	Location             *time.Location
	DirectoryChunkSize   int // default: 30
	DirectoryParallelism int // default: 4
	Now                  func() time.Time
	Observer             PassObserver
}

type reconcilerImpl struct {
	feed      punch.Feed
	presence  presence.PresenceRepository
	directory directory.DirectoryRepository
	config    ReconcilerConfig
}

func NewReconciler(feed punch.Feed, presenceRepo presence.PresenceRepository, directoryRepo directory.DirectoryRepository, cfg ReconcilerConfig) presence.Reconciler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DirectoryChunkSize <= 0 {
		cfg.DirectoryChunkSize = 30
	}
	if cfg.DirectoryParallelism <= 0 {
		cfg.DirectoryParallelism = 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &reconcilerImpl{
		feed:      feed,
		presence:  presenceRepo,
		directory: directoryRepo,
		config:    cfg,
	}
}

// Reconcile runs one pass. Only the final commit mutates state, so any error
// leaves the presence collection as it was. A panic inside the pass is
// recovered and reported as presence.ErrPassPanicked.
func (r *reconcilerImpl) Reconcile(ctx context.Context) (result presence.ReconcileResult, err error) {
	start := r.config.Now()
	window := punch.Today(start, r.config.Location)
	result = presence.ReconcileResult{
		PassID:    uuid.NewString(),
		Day:       window.Day(),
		StartedAt: start,
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("Reconcile: pass panicked", "pass_id", result.PassID, "panic", p, "stack", string(debug.Stack()))
			result = presence.ReconcileResult{PassID: result.PassID, Day: result.Day, StartedAt: start}
			err = fmt.Errorf("%w: %v", presence.ErrPassPanicked, p)
		}
		result.Duration = r.config.Now().Sub(start)
		if r.config.Observer != nil {
			r.config.Observer.ObservePass(result, err)
		}
	}()

	if err := r.pass(ctx, window, &result); err != nil {
		slog.Error("Reconcile: pass aborted", "pass_id", result.PassID, "day", result.Day, "error", err)
		return result, err
	}

	slog.Info("Reconcile: pass finished",
		"pass_id", result.PassID,
		"day", result.Day,
		"punches", result.PunchesFetched,
		"dropped", result.PunchesDropped,
		"present", result.Present,
		"suppressed", result.Suppressed,
		"upserted", result.Upserted,
		"deleted", result.Deleted,
		"committed", result.Committed,
	)
	return result, nil
}

func (r *reconcilerImpl) pass(ctx context.Context, window punch.Window, result *presence.ReconcileResult) error {
	records, err := punch.FetchAll(ctx, r.feed, window)
	if err != nil {
		return fmt.Errorf("fetch punches: %w", err)
	}
	result.PunchesFetched = len(records)

	punches := make([]punch.Punch, 0, len(records))
	for _, rec := range records {
		p, err := rec.Normalize(window)
		if err != nil {
			result.PunchesDropped++
			slog.Warn("Reconcile: dropping punch record",
				"pass_id", result.PassID,
				"person_id", rec.PersonID,
				"timestamp", rec.Timestamp,
				"error", err,
			)
			continue
		}
		punches = append(punches, p)
	}

	tally := presence.NewTally(punches)
	result.PersonsSeen = len(tally.Order)

	existing, err := r.presence.List(ctx)
	if err != nil {
		return fmt.Errorf("list presence entries: %w", err)
	}
	overrides, err := r.presence.ListOverrides(ctx)
	if err != nil {
		return fmt.Errorf("list checkout overrides: %w", err)
	}

	names, err := r.displayNames(ctx, tally.Present())
	if errors.Is(err, batch.ErrPanicked) {
		return fmt.Errorf("%w: resolve display names: %w", presence.ErrPassPanicked, err)
	}
	if err != nil {
		return fmt.Errorf("resolve display names: %w", err)
	}

	plan := presence.NewPlan(tally, window.Day(), existing, names, overrides)
	result.Present = len(plan.Desired)
	result.Suppressed = len(plan.Suppressed)
	result.Upserted = len(plan.Batch.Upserts)
	result.Deleted = len(plan.Batch.Deletes)

	if plan.Batch.IsEmpty() {
		return nil
	}

	if err := r.presence.Apply(ctx, plan.Batch); err != nil {
		return fmt.Errorf("commit presence batch: %w", err)
	}
	result.Committed = true

	return nil
}

// displayNames looks the ids up in the directory in chunks the store accepts.
func (r *reconcilerImpl) displayNames(ctx context.Context, ids []string) (map[string]string, error) {
	return batch.LookupChunked(ctx, ids, r.config.DirectoryChunkSize, r.config.DirectoryParallelism,
		func(ctx context.Context, chunk []string) (map[string]string, error) {
			identities, err := r.directory.FindByPersonIDs(ctx, chunk)
			if err != nil {
				return nil, err
			}
			names := make(map[string]string, len(identities))
			for _, id := range identities {
				names[id.PersonID] = id.DisplayName
			}
			return names, nil
		})
}
