package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/visitor"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type VisitorHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	CheckIn(w http.ResponseWriter, r *http.Request)
	Checkout(w http.ResponseWriter, r *http.Request)
}

type visitorHandlerImpl struct {
	visitorService visitor.VisitorService
	liveView       presence.LiveView
}

func NewVisitorHandler(visitorService visitor.VisitorService, liveView presence.LiveView) VisitorHandler {
	return &visitorHandlerImpl{
		visitorService: visitorService,
		liveView:       liveView,
	}
}

func (h *visitorHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	visitors, err := h.visitorService.ListToday(r.Context())
	if err != nil {
		slog.Error("List visitors error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, visitors)
}

func (h *visitorHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req visitor.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Visitor check-in decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	resp, err := h.visitorService.CheckIn(r.Context(), req)
	if err != nil {
		slog.Error("Visitor check-in error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Visitor checked in", resp)
}

func (h *visitorHandlerImpl) Checkout(w http.ResponseWriter, r *http.Request) {
	visitorID := chi.URLParam(r, "id")
	if !validator.IsValidUUID(visitorID) {
		response.HandleError(w, visitor.ErrInvalidID)
		return
	}

	h.liveView.CheckoutVisitor(visitorID)

	response.Accepted(w, "Checkout accepted", presence.CheckoutResponse{
		Kind:   presence.TargetVisitor,
		ID:     visitorID,
		Status: "accepted",
	})
}
