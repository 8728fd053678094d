package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/visitor"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/errbus"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveHarness struct {
	repo     *fakePresenceRepo
	visitors *fakeVisitorRepo
	watcher  *fakeWatcher
	bus      *errbus.Bus
	observer *recordingObserver
	view     *LiveViewImpl
}

func newLiveHarness(entries ...presence.Entry) *liveHarness {
	h := &liveHarness{
		repo:     newFakePresenceRepo(entries...),
		visitors: newFakeVisitorRepo(),
		watcher:  newFakeWatcher(),
		bus:      errbus.New(sse.NewHub()),
		observer: &recordingObserver{},
	}
	h.view = NewLiveView(h.repo, h.visitors, h.watcher, h.bus, LiveViewConfig{
		Location:        wib,
		CheckoutTimeout: time.Second,
		Now:             func() time.Time { return at(15, 0) },
		Observer:        h.observer,
	})
	return h
}

func next[T any](t *testing.T, ch <-chan presence.Snapshot[T]) presence.Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return presence.Snapshot[T]{}
	}
}

func closed[T any](t *testing.T, ch <-chan presence.Snapshot[T]) {
	t.Helper()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected subscription to be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not closed")
	}
}

func TestSubscribePresence_SnapshotsOnChange(t *testing.T) {
	h := newLiveHarness(presence.Entry{PersonID: "E1"})

	snaps, cancel := h.view.SubscribePresence(context.Background())

	first := next(t, snaps)
	assert.False(t, first.Stale)
	require.Len(t, first.Items, 1)
	assert.Equal(t, []string{database.ChannelPresenceChanged}, h.watcher.channels)

	require.NoError(t, h.repo.Apply(context.Background(), presence.Batch{
		Upserts: []presence.Entry{{PersonID: "E2"}},
	}))
	h.watcher.signals <- struct{}{}

	second := next(t, snaps)
	assert.Len(t, second.Items, 2)

	cancel()
	cancel()
	closed(t, snaps)
	assert.Equal(t, 1, h.watcher.releasedCount())
}

func TestSubscribePresence_EmptyCollection(t *testing.T) {
	h := newLiveHarness()

	snaps, cancel := h.view.SubscribePresence(context.Background())
	defer cancel()

	snap := next(t, snaps)
	assert.Empty(t, snap.Items)
	assert.NoError(t, snap.Err)
}

func TestSubscribePresence_ContextCancelReleases(t *testing.T) {
	h := newLiveHarness()
	ctx, cancel := context.WithCancel(context.Background())

	snaps, stop := h.view.SubscribePresence(ctx)
	next(t, snaps)

	cancel()
	closed(t, snaps)
	stop()
	assert.Equal(t, 1, h.watcher.releasedCount())
}

func TestSubscribePresence_StaleOnReloadError(t *testing.T) {
	h := newLiveHarness(presence.Entry{PersonID: "E1"})

	snaps, cancel := h.view.SubscribePresence(context.Background())
	defer cancel()
	next(t, snaps)

	h.repo.setListErr(errors.New("read timeout"))
	h.watcher.signals <- struct{}{}

	stale := next(t, snaps)
	assert.True(t, stale.Stale)
	assert.EqualError(t, stale.Err, "read timeout")
	require.Len(t, stale.Items, 1)
	assert.Equal(t, "E1", stale.Items[0].PersonID)

	h.repo.setListErr(nil)
	h.watcher.signals <- struct{}{}

	fresh := next(t, snaps)
	assert.False(t, fresh.Stale)
	assert.NoError(t, fresh.Err)
}

func TestSubscribePresence_PermissionErrorPublished(t *testing.T) {
	h := newLiveHarness()
	failures, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	h.repo.setListErr(&pgconn.PgError{Code: "42501", Message: "permission denied for table presence_entries"})

	snaps, cancel := h.view.SubscribePresence(context.Background())
	defer cancel()

	snap := next(t, snaps)
	assert.False(t, snap.Stale, "nothing was delivered before, so the snapshot is not stale")
	assert.Error(t, snap.Err)

	select {
	case ev := <-failures:
		f := ev.Data.(errbus.Failure)
		assert.Equal(t, errbus.KindPermission, f.Kind)
		assert.Equal(t, "presence_entries", f.Path)
	case <-time.After(time.Second):
		t.Fatal("permission failure not published")
	}
}

func TestSubscribePresence_WatchFailure(t *testing.T) {
	h := newLiveHarness()
	h.watcher.err = errors.New("pool exhausted")

	snaps, cancel := h.view.SubscribePresence(context.Background())
	defer cancel()

	snap := next(t, snaps)
	assert.EqualError(t, snap.Err, "pool exhausted")
	closed(t, snaps)
}

func TestSubscribePresence_WatchLost(t *testing.T) {
	h := newLiveHarness(presence.Entry{PersonID: "E1"})

	snaps, cancel := h.view.SubscribePresence(context.Background())
	defer cancel()
	next(t, snaps)

	close(h.watcher.signals)

	lost := next(t, snaps)
	assert.ErrorIs(t, lost.Err, presence.ErrWatchLost)
	assert.True(t, lost.Stale)
	assert.Len(t, lost.Items, 1)
	closed(t, snaps)
}

func TestSubscribeVisitors_SinceMidnight(t *testing.T) {
	h := newLiveHarness()
	h.visitors = newFakeVisitorRepo(
		visitor.Visitor{ID: "v-old", Name: "Yesterday", EnteredAt: at(9, 0).AddDate(0, 0, -1)},
		visitor.Visitor{ID: "v-new", Name: "Today", EnteredAt: at(9, 0)},
	)
	h.view.visitors = h.visitors

	snaps, cancel := h.view.SubscribeVisitors(context.Background())
	defer cancel()

	snap := next(t, snaps)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Today", snap.Items[0].Name)
	assert.Equal(t, []string{database.ChannelVisitorsChanged}, h.watcher.channels)
}

func TestSubscribeVisitors_ReloadsAtMidnight(t *testing.T) {
	var mu sync.Mutex
	now := at(23, 30)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	tick := make(chan time.Time)
	var waits []time.Duration
	after := func(d time.Duration) <-chan time.Time {
		mu.Lock()
		defer mu.Unlock()
		waits = append(waits, d)
		return tick
	}

	visitors := newFakeVisitorRepo(visitor.Visitor{ID: "v-1", Name: "Late guest", EnteredAt: at(22, 0)})
	view := NewLiveView(newFakePresenceRepo(), visitors, newFakeWatcher(), errbus.New(sse.NewHub()), LiveViewConfig{
		Location: wib,
		Now:      clock,
		After:    after,
	})

	snaps, cancel := view.SubscribeVisitors(context.Background())
	defer cancel()

	require.Len(t, next(t, snaps).Items, 1)

	mu.Lock()
	require.Equal(t, []time.Duration{30 * time.Minute}, waits)
	now = at(23, 30).Add(31 * time.Minute)
	mu.Unlock()

	tick <- now
	assert.Empty(t, next(t, snaps).Items, "yesterday's visitors drop out after midnight")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(waits) == 2
	}, time.Second, 5*time.Millisecond, "timer re-armed for the following midnight")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 24*time.Hour-time.Minute, waits[1])
}

func TestCheckoutPerson_Outcomes(t *testing.T) {
	h := newLiveHarness(presence.Entry{PersonID: "E1", MovementCount: 3})

	o := <-h.view.CheckoutPerson(" E1 ")
	require.True(t, o.OK())
	assert.Equal(t, presence.Outcome{Kind: presence.TargetPerson, ID: "E1", Deleted: true}, o)
	assert.Equal(t, 3, h.repo.overrides["E1"].MovementCount)
	assert.Equal(t, "2026-10-17", h.repo.overrides["E1"].Day)

	o = <-h.view.CheckoutPerson("E404")
	assert.True(t, o.OK())
	assert.False(t, o.Deleted)

	o = <-h.view.CheckoutPerson("  ")
	assert.ErrorIs(t, o.Err, presence.ErrPersonIDRequired)

	h.view.Wait()
	assert.Len(t, h.observer.checkouts, 3)
}

func TestCheckoutPerson_FailurePublished(t *testing.T) {
	h := newLiveHarness(presence.Entry{PersonID: "E1"})
	h.repo.checkoutErr = errors.New("connection reset")
	failures, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	o := <-h.view.CheckoutPerson("E1")
	require.Error(t, o.Err)

	select {
	case ev := <-failures:
		f := ev.Data.(errbus.Failure)
		assert.Equal(t, errbus.KindWrite, f.Kind)
		assert.Equal(t, "delete", f.Operation)
		assert.Equal(t, "presence_entries/E1", f.Path)
	case <-time.After(time.Second):
		t.Fatal("write failure not published")
	}
}

func TestCheckoutPerson_PanicReportedAsFailure(t *testing.T) {
	h := newLiveHarness(presence.Entry{PersonID: "E1"})
	h.repo.panicOnCheckout = true
	failures, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	var o presence.Outcome
	select {
	case o = <-h.view.CheckoutPerson("E1"):
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome delivered")
	}
	require.ErrorIs(t, o.Err, presence.ErrCheckoutPanicked)
	assert.ErrorContains(t, o.Err, "driver exploded")
	assert.False(t, o.Deleted)

	select {
	case ev := <-failures:
		f := ev.Data.(errbus.Failure)
		assert.Equal(t, "delete", f.Operation)
		assert.Equal(t, "presence_entries/E1", f.Path)
	case <-time.After(time.Second):
		t.Fatal("panic not published")
	}

	h.view.Wait()
	h.observer.mu.Lock()
	defer h.observer.mu.Unlock()
	require.Len(t, h.observer.checkouts, 1)
	assert.ErrorIs(t, h.observer.checkouts[0].Err, presence.ErrCheckoutPanicked)
}

func TestCheckoutPerson_DoesNotBlockCaller(t *testing.T) {
	h := newLiveHarness(presence.Entry{PersonID: "E1"})
	h.repo.mu.Lock()

	done := make(chan (<-chan presence.Outcome))
	go func() { done <- h.view.CheckoutPerson("E1") }()

	var outcome <-chan presence.Outcome
	select {
	case outcome = <-done:
	case <-time.After(time.Second):
		t.Fatal("CheckoutPerson blocked while the store was busy")
	}

	h.repo.mu.Unlock()
	assert.True(t, (<-outcome).OK())
}

func TestCheckoutVisitor(t *testing.T) {
	h := newLiveHarness()
	id := uuid.Must(uuid.NewV7()).String()
	h.visitors.visitors[id] = visitor.Visitor{ID: id, Name: "Grace", EnteredAt: at(9, 0)}

	o := <-h.view.CheckoutVisitor(id)
	require.True(t, o.OK())
	assert.True(t, o.Deleted)
	assert.Equal(t, presence.TargetVisitor, o.Kind)

	o = <-h.view.CheckoutVisitor("not-a-uuid")
	assert.ErrorIs(t, o.Err, visitor.ErrInvalidID)

	// Visitor ids are always minted as UUIDv7.
	o = <-h.view.CheckoutVisitor(uuid.NewString())
	assert.ErrorIs(t, o.Err, visitor.ErrInvalidID)
}
