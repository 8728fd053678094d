package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Notification channels raised by the collection triggers in the schema.
const (
	ChannelPresenceChanged = "presence_entries_changed"
	ChannelVisitorsChanged = "visitor_entries_changed"
)

const (
	eventChanged = "changed"
	eventLost    = "lost"
)

var (
	ErrNotListening   = errors.New("change listener is not connected")
	ErrUnknownChannel = errors.New("channel is not listened to")
)

type listenConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// Listener holds a single connection outside the pool that LISTENs on every
// channel and republishes notifications on the hub, one topic per channel.
// Any number of watchers share it.
type Listener struct {
	connect  func(ctx context.Context) (listenConn, error)
	hub      *sse.Hub
	channels []string
	retry    time.Duration

	mu        sync.RWMutex
	listening bool
	done      chan struct{}
}

func NewListener(db *DB, hub *sse.Hub, channels ...string) *Listener {
	connConfig := db.Pool.Config().ConnConfig
	return newListener(func(ctx context.Context) (listenConn, error) {
		return pgx.ConnectConfig(ctx, connConfig.Copy())
	}, hub, channels...)
}

func newListener(connect func(ctx context.Context) (listenConn, error), hub *sse.Hub, channels ...string) *Listener {
	return &Listener{
		connect:  connect,
		hub:      hub,
		channels: channels,
		retry:    5 * time.Second,
		done:     make(chan struct{}),
	}
}

func topic(channel string) string {
	return "db:" + channel
}

// Start connects and issues LISTEN before returning, so watchers registered
// afterwards see every later change. The connection is re-established in
// the background until ctx ends.
func (l *Listener) Start(ctx context.Context) error {
	conn, err := l.open(ctx)
	if err != nil {
		close(l.done)
		return err
	}
	l.setListening(true)

	go l.run(ctx, conn)
	return nil
}

// Wait blocks until the background loop has exited.
func (l *Listener) Wait() {
	<-l.done
}

func (l *Listener) open(ctx context.Context) (listenConn, error) {
	conn, err := l.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect listener: %w", err)
	}
	for _, channel := range l.channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
			conn.Close(context.Background())
			return nil, fmt.Errorf("listen on %s: %w", channel, err)
		}
	}
	return conn, nil
}

func (l *Listener) run(ctx context.Context, conn listenConn) {
	defer close(l.done)

	for {
		err := l.forward(ctx, conn)
		conn.Close(context.Background())
		l.setListening(false)
		for _, channel := range l.channels {
			l.hub.Publish(sse.Event{Topic: topic(channel), Event: eventLost})
		}
		if ctx.Err() != nil {
			return
		}
		slog.Warn("Listen connection lost", "error", err)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.retry):
			}
			conn, err = l.open(ctx)
			if err == nil {
				break
			}
			slog.Warn("Failed to re-establish listen connection", "error", err)
		}
		l.setListening(true)
		slog.Info("Listen connection re-established")
	}
}

func (l *Listener) forward(ctx context.Context, conn listenConn) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.hub.Publish(sse.Event{Topic: topic(n.Channel), Event: eventChanged})
	}
}

func (l *Listener) setListening(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listening = v
}

// Watch signals on the returned channel every time channel is notified.
// Bursts are coalesced into a single signal. The signal channel is closed
// when the listen connection drops, when ctx ends or when release is
// called. Release is safe to call more than once.
func (l *Listener) Watch(ctx context.Context, channel string) (<-chan struct{}, func(), error) {
	if !slices.Contains(l.channels, channel) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	l.mu.RLock()
	if !l.listening {
		l.mu.RUnlock()
		return nil, nil, ErrNotListening
	}
	events, unsubscribe := l.hub.Subscribe(topic(channel))
	l.mu.RUnlock()

	watchCtx, cancel := context.WithCancel(ctx)
	signals := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(signals)

		for {
			select {
			case <-watchCtx.Done():
				return
			case ev, ok := <-events:
				if !ok || ev.Event == eventLost {
					return
				}
				select {
				case signals <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			<-done
			unsubscribe()
		})
	}

	return signals, release, nil
}
