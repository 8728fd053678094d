package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/visitor"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/errbus"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
)

// SSE event names
const (
	EventLoading  = "loading"
	EventSnapshot = "snapshot"
	EventStale    = "stale"
	EventPing     = "ping"
)

const defaultPingInterval = 30 * time.Second

type StreamHandler interface {
	Token(w http.ResponseWriter, r *http.Request)
	Presence(w http.ResponseWriter, r *http.Request)
	Visitors(w http.ResponseWriter, r *http.Request)
	Errors(w http.ResponseWriter, r *http.Request)
}

type streamHandlerImpl struct {
	authService  auth.AuthService
	jwtService   jwt.Service
	liveView     presence.LiveView
	bus          *errbus.Bus
	pingInterval time.Duration
}

func NewStreamHandler(authService auth.AuthService, jwtService jwt.Service, liveView presence.LiveView, bus *errbus.Bus) StreamHandler {
	return &streamHandlerImpl{
		authService:  authService,
		jwtService:   jwtService,
		liveView:     liveView,
		bus:          bus,
		pingInterval: defaultPingInterval,
	}
}

// SnapshotPayload is the data of snapshot and stale events.
type SnapshotPayload[R any] struct {
	Items []R     `json:"items"`
	Stale bool    `json:"stale"`
	Error *string `json:"error,omitempty"`
	At    string  `json:"at"`
}

// Token generates a short-lived token for SSE connections
func (h *streamHandlerImpl) Token(w http.ResponseWriter, r *http.Request) {
	operatorID := getOperatorIDFromContext(r)
	if operatorID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	resp, err := h.authService.StreamToken(r.Context(), operatorID)
	if err != nil {
		slog.Error("Stream token error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, resp)
}

// authorize validates the query-string token, since EventSource cannot send
// headers.
func (h *streamHandlerImpl) authorize(w http.ResponseWriter, r *http.Request, permission user.Permission) bool {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return false
	}

	_, role, err := h.jwtService.ValidateStreamToken(tokenStr)
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return false
	}

	if !user.HasPermission(role, permission) {
		response.HandleError(w, user.ErrInsufficientPermissions)
		return false
	}
	return true
}

func (h *streamHandlerImpl) Presence(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, user.PermissionPresenceView) {
		return
	}

	snaps, cancel := h.liveView.SubscribePresence(r.Context())
	defer cancel()

	streamSnapshots(w, r, snaps, presence.ToResponses, h.pingInterval)
}

func (h *streamHandlerImpl) Visitors(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, user.PermissionVisitorView) {
		return
	}

	snaps, cancel := h.liveView.SubscribeVisitors(r.Context())
	defer cancel()

	streamSnapshots(w, r, snaps, visitor.ToResponses, h.pingInterval)
}

// Errors streams failed background writes as write_error events.
func (h *streamHandlerImpl) Errors(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, user.PermissionErrorsView) {
		return
	}

	events, cleanup := h.bus.Subscribe()
	defer cleanup()

	stream, err := sse.NewWriter(w)
	if err != nil {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	keepalive := time.NewTicker(h.pingInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := stream.Send(event.Event, event.Data); err != nil {
				return
			}
		case <-keepalive.C:
			if err := stream.Send(EventPing, map[string]int64{"timestamp": time.Now().Unix()}); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// streamSnapshots relays subscription snapshots until the client leaves or
// the subscription ends.
func streamSnapshots[T, R any](w http.ResponseWriter, r *http.Request, snaps <-chan presence.Snapshot[T], convert func([]T) []R, pingInterval time.Duration) {
	stream, err := sse.NewWriter(w)
	if err != nil {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	if err := stream.Send(EventLoading, map[string]bool{"loading": true}); err != nil {
		return
	}

	keepalive := time.NewTicker(pingInterval)
	defer keepalive.Stop()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			payload := SnapshotPayload[R]{
				Items: convert(snap.Items),
				Stale: snap.Stale,
				At:    snap.At.Format(time.RFC3339),
			}
			event := EventSnapshot
			if snap.Err != nil {
				msg := snap.Err.Error()
				payload.Error = &msg
				event = EventStale
			}
			if err := stream.Send(event, payload); err != nil {
				return
			}
		case <-keepalive.C:
			if err := stream.Send(EventPing, map[string]int64{"timestamp": time.Now().Unix()}); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
