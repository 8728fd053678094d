package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListenConn struct {
	mu       sync.Mutex
	execs    []string
	closed   bool
	notify   chan *pgconn.Notification
	dropped  chan struct{}
	dropOnce sync.Once
}

func newFakeListenConn() *fakeListenConn {
	return &fakeListenConn{
		notify:  make(chan *pgconn.Notification, 8),
		dropped: make(chan struct{}),
	}
}

func (c *fakeListenConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (c *fakeListenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.dropped:
		return nil, errors.New("conn closed")
	case n := <-c.notify:
		return n, nil
	}
}

func (c *fakeListenConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeListenConn) drop() {
	c.dropOnce.Do(func() { close(c.dropped) })
}

// fakeDialer hands out the queued connections in order.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeListenConn
	dials int
}

func (d *fakeDialer) connect(context.Context) (listenConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dials >= len(d.conns) {
		return nil, errors.New("database unavailable")
	}
	c := d.conns[d.dials]
	d.dials++
	return c, nil
}

func signalled(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.True(t, ok, "signals closed unexpectedly")
	case <-time.After(2 * time.Second):
		t.Fatal("no signal")
	}
}

func closedSignals(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("signals not closed")
		}
	}
}

func TestListener_SharesOneConnection(t *testing.T) {
	conn := newFakeListenConn()
	dialer := &fakeDialer{conns: []*fakeListenConn{conn}}
	hub := sse.NewHub()
	l := newListener(dialer.connect, hub, ChannelPresenceChanged, ChannelVisitorsChanged)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))

	a, releaseA, err := l.Watch(ctx, ChannelPresenceChanged)
	require.NoError(t, err)
	defer releaseA()
	b, releaseB, err := l.Watch(ctx, ChannelPresenceChanged)
	require.NoError(t, err)
	defer releaseB()
	v, releaseV, err := l.Watch(ctx, ChannelVisitorsChanged)
	require.NoError(t, err)
	defer releaseV()

	assert.Equal(t, 1, dialer.dials)
	assert.Equal(t, []string{`LISTEN "presence_entries_changed"`, `LISTEN "visitor_entries_changed"`}, conn.execs)

	conn.notify <- &pgconn.Notification{Channel: ChannelPresenceChanged}
	signalled(t, a)
	signalled(t, b)
	select {
	case <-v:
		t.Fatal("visitor watcher signalled for a presence change")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	l.Wait()
	assert.True(t, conn.closed)
}

func TestListener_ReleaseClosesSignals(t *testing.T) {
	dialer := &fakeDialer{conns: []*fakeListenConn{newFakeListenConn()}}
	hub := sse.NewHub()
	l := newListener(dialer.connect, hub, ChannelPresenceChanged)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		l.Wait()
	}()
	require.NoError(t, l.Start(ctx))

	signals, release, err := l.Watch(ctx, ChannelPresenceChanged)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.SubscriberCount(topic(ChannelPresenceChanged)))

	release()
	release()
	closedSignals(t, signals)
	assert.Zero(t, hub.SubscriberCount(topic(ChannelPresenceChanged)))
}

func TestListener_LostConnectionEndsWatchesAndReconnects(t *testing.T) {
	first, second := newFakeListenConn(), newFakeListenConn()
	dialer := &fakeDialer{conns: []*fakeListenConn{first, second}}
	l := newListener(dialer.connect, sse.NewHub(), ChannelPresenceChanged)
	l.retry = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		l.Wait()
	}()
	require.NoError(t, l.Start(ctx))

	signals, release, err := l.Watch(ctx, ChannelPresenceChanged)
	require.NoError(t, err)
	defer release()

	first.drop()
	closedSignals(t, signals)

	require.Eventually(t, func() bool {
		_, r, err := l.Watch(ctx, ChannelPresenceChanged)
		if err != nil {
			return false
		}
		r()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	again, releaseAgain, err := l.Watch(ctx, ChannelPresenceChanged)
	require.NoError(t, err)
	defer releaseAgain()
	second.notify <- &pgconn.Notification{Channel: ChannelPresenceChanged}
	signalled(t, again)
}

func TestListener_WatchErrors(t *testing.T) {
	l := newListener((&fakeDialer{}).connect, sse.NewHub(), ChannelPresenceChanged)

	_, _, err := l.Watch(context.Background(), "other_channel")
	assert.ErrorIs(t, err, ErrUnknownChannel)

	_, _, err = l.Watch(context.Background(), ChannelPresenceChanged)
	assert.ErrorIs(t, err, ErrNotListening)

	err = l.Start(context.Background())
	assert.ErrorContains(t, err, "database unavailable")
	l.Wait()
}
