package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type PresenceHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Checkout(w http.ResponseWriter, r *http.Request)
}

type presenceHandlerImpl struct {
	liveView presence.LiveView
}

func NewPresenceHandler(liveView presence.LiveView) PresenceHandler {
	return &presenceHandlerImpl{liveView: liveView}
}

// getOperatorIDFromContext extracts user_id from JWT context
func getOperatorIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if operatorID, ok := claims["user_id"].(string); ok {
		return operatorID
	}
	return ""
}

func (h *presenceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.liveView.ListPresence(r.Context())
	if err != nil {
		slog.Error("List presence error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, presence.ToResponses(entries))
}

// Checkout removes a person from the presence list. The delete completes
// after the response; failures surface on the error stream.
func (h *presenceHandlerImpl) Checkout(w http.ResponseWriter, r *http.Request) {
	personID := strings.TrimSpace(chi.URLParam(r, "personID"))
	if personID == "" {
		response.HandleError(w, presence.ErrPersonIDRequired)
		return
	}

	h.liveView.CheckoutPerson(personID)

	slog.Info("Manual checkout requested", "person_id", personID, "operator_id", getOperatorIDFromContext(r))
	response.Accepted(w, "Checkout accepted", presence.CheckoutResponse{
		Kind:   presence.TargetPerson,
		ID:     personID,
		Status: "accepted",
	})
}
