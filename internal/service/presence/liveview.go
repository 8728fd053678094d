package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/visitor"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/errbus"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// ChangeWatcher signals whenever a collection changes. *database.Listener
// implements it with a shared LISTEN connection.
type ChangeWatcher interface {
	Watch(ctx context.Context, channel string) (<-chan struct{}, func(), error)
}

// CheckoutObserver is told about every finished manual checkout.
type CheckoutObserver interface {
	ObserveCheckout(o presence.Outcome)
}

type LiveViewConfig struct {
	Location        *time.Location
	CheckoutTimeout time.Duration // default: 15 seconds
	Now             func() time.Time
	After           func(d time.Duration) <-chan time.Time
	Observer        CheckoutObserver
}

type LiveViewImpl struct {
	presence presence.PresenceRepository
	visitors visitor.VisitorRepository
	watcher  ChangeWatcher
	bus      *errbus.Bus
	config   LiveViewConfig

	inflight sync.WaitGroup
}

func NewLiveView(presenceRepo presence.PresenceRepository, visitorRepo visitor.VisitorRepository, watcher ChangeWatcher, bus *errbus.Bus, cfg LiveViewConfig) *LiveViewImpl {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CheckoutTimeout <= 0 {
		cfg.CheckoutTimeout = 15 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.After == nil {
		cfg.After = time.After
	}

	return &LiveViewImpl{
		presence: presenceRepo,
		visitors: visitorRepo,
		watcher:  watcher,
		bus:      bus,
		config:   cfg,
	}
}

var _ presence.LiveView = (*LiveViewImpl)(nil)

func (s *LiveViewImpl) ListPresence(ctx context.Context) ([]presence.Entry, error) {
	return s.presence.List(ctx)
}

func (s *LiveViewImpl) SubscribePresence(ctx context.Context) (<-chan presence.Snapshot[presence.Entry], func()) {
	return subscribe(ctx, s, database.ChannelPresenceChanged, "presence_entries", nil, s.presence.List)
}

func (s *LiveViewImpl) SubscribeVisitors(ctx context.Context) (<-chan presence.Snapshot[visitor.Visitor], func()) {
	return subscribe(ctx, s, database.ChannelVisitorsChanged, "visitor_entries", s.nextMidnight, func(ctx context.Context) ([]visitor.Visitor, error) {
		midnight := punch.Today(s.config.Now(), s.config.Location).Start
		return s.visitors.ListSince(ctx, midnight)
	})
}

// nextMidnight fires at the next local day boundary.
func (s *LiveViewImpl) nextMidnight() <-chan time.Time {
	now := s.config.Now()
	return s.config.After(punch.Today(now, s.config.Location).End.Sub(now))
}

// subscribe delivers a fresh snapshot first and another one after every
// change signal. The watch is established before the first load so no change
// can slip between the two. A non-nil rollover also forces a reload each
// time its channel fires. Sends block until the consumer reads or the
// subscription ends.
func subscribe[T any](ctx context.Context, s *LiveViewImpl, channel, path string, rollover func() <-chan time.Time, load func(context.Context) ([]T, error)) (<-chan presence.Snapshot[T], func()) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan presence.Snapshot[T], 1)
	done := make(chan struct{})

	send := func(snap presence.Snapshot[T]) bool {
		select {
		case out <- snap:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(done)
		defer close(out)

		signals, release, err := s.watcher.Watch(ctx, channel)
		if err != nil {
			if ctx.Err() == nil {
				s.readFailed(path, err)
				send(presence.Snapshot[T]{Err: err, At: s.config.Now()})
			}
			return
		}
		defer release()

		var (
			last      []T
			delivered bool
		)
		reload := func() bool {
			items, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				s.readFailed(path, err)
				return send(presence.Snapshot[T]{Items: last, Stale: delivered, Err: err, At: s.config.Now()})
			}
			last, delivered = items, true
			return send(presence.Snapshot[T]{Items: items, At: s.config.Now()})
		}

		if !reload() {
			return
		}
		var dayEnd <-chan time.Time
		if rollover != nil {
			dayEnd = rollover()
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-dayEnd:
				if !reload() {
					return
				}
				dayEnd = rollover()
			case _, ok := <-signals:
				if !ok {
					if ctx.Err() == nil {
						slog.Warn("LiveView: change notifications stopped", "path", path)
						send(presence.Snapshot[T]{Items: last, Stale: delivered, Err: presence.ErrWatchLost, At: s.config.Now()})
					}
					return
				}
				if !reload() {
					return
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return out, stop
}

// readFailed logs a failed snapshot load. Authorization failures are also
// surfaced on the error bus because they will not heal by themselves.
func (s *LiveViewImpl) readFailed(path string, err error) {
	if errbus.Classify(err) == errbus.KindPermission {
		s.bus.Publish(context.Background(), "read", path, nil, err)
		return
	}
	slog.Warn("LiveView: snapshot reload failed", "path", path, "error", err)
}

func (s *LiveViewImpl) CheckoutPerson(personID string) <-chan presence.Outcome {
	personID = strings.TrimSpace(personID)
	return s.fire(presence.TargetPerson, personID, "presence_entries/"+personID, func(ctx context.Context) (bool, error) {
		if personID == "" {
			return false, presence.ErrPersonIDRequired
		}
		now := s.config.Now()
		day := punch.Today(now, s.config.Location).Day()
		return s.presence.Checkout(ctx, personID, day, now)
	})
}

func (s *LiveViewImpl) CheckoutVisitor(visitorID string) <-chan presence.Outcome {
	visitorID = strings.TrimSpace(visitorID)
	return s.fire(presence.TargetVisitor, visitorID, "visitor_entries/"+visitorID, func(ctx context.Context) (bool, error) {
		if !validator.IsValidUUID(visitorID) {
			return false, visitor.ErrInvalidID
		}
		return s.visitors.Delete(ctx, visitorID)
	})
}

// fire runs op on its own goroutine under the checkout timeout. The outcome
// is buffered, so a caller that never reads does not leak the goroutine. A
// panicking op is reported like any other failure.
func (s *LiveViewImpl) fire(kind presence.TargetKind, id, path string, op func(ctx context.Context) (bool, error)) <-chan presence.Outcome {
	out := make(chan presence.Outcome, 1)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer close(out)

		ctx, cancel := context.WithTimeout(context.Background(), s.config.CheckoutTimeout)
		defer cancel()

		deleted, err := guard(ctx, op)
		o := presence.Outcome{Kind: kind, ID: id, Deleted: deleted, Err: err}

		switch {
		case err == nil:
			slog.Info("LiveView: checked out", "kind", kind, "id", id, "deleted", deleted)
		case errors.Is(err, presence.ErrPersonIDRequired), errors.Is(err, visitor.ErrInvalidID):
			slog.Warn("LiveView: checkout rejected", "kind", kind, "id", id, "error", err)
		default:
			s.bus.Publish(context.Background(), "delete", path, map[string]string{"id": id}, err)
		}

		if s.config.Observer != nil {
			s.config.Observer.ObserveCheckout(o)
		}
		out <- o
	}()

	return out
}

func guard(ctx context.Context, op func(ctx context.Context) (bool, error)) (deleted bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("LiveView: checkout panicked", "panic", p, "stack", string(debug.Stack()))
			deleted, err = false, fmt.Errorf("%w: %v", presence.ErrCheckoutPanicked, p)
		}
	}()
	return op(ctx)
}

// Wait blocks until every checkout started so far has finished.
func (s *LiveViewImpl) Wait() {
	s.inflight.Wait()
}
