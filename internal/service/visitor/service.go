package visitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/visitor"
	"github.com/google/uuid"
)

type VisitorServiceImpl struct {
	visitor.VisitorRepository
	location *time.Location
	now      func() time.Time
}

func NewVisitorService(visitorRepository visitor.VisitorRepository, location *time.Location) visitor.VisitorService {
	if location == nil {
		location = time.UTC
	}
	return &VisitorServiceImpl{
		VisitorRepository: visitorRepository,
		location:          location,
		now:               time.Now,
	}
}

// CheckIn implements visitor.VisitorService.
func (s *VisitorServiceImpl) CheckIn(ctx context.Context, req visitor.CheckInRequest) (visitor.VisitorResponse, error) {
	if err := req.Validate(); err != nil {
		return visitor.VisitorResponse{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return visitor.VisitorResponse{}, fmt.Errorf("failed to generate visitor id: %w", err)
	}

	created, err := s.VisitorRepository.Create(ctx, visitor.Visitor{
		ID:        id.String(),
		Name:      req.Name,
		Company:   req.Company,
		EnteredAt: s.now(),
	})
	if err != nil {
		return visitor.VisitorResponse{}, fmt.Errorf("failed to create visitor: %w", err)
	}

	slog.Info("Visitor checked in", "visitor_id", created.ID)
	return visitor.ToResponse(created), nil
}

// ListToday implements visitor.VisitorService.
func (s *VisitorServiceImpl) ListToday(ctx context.Context) ([]visitor.VisitorResponse, error) {
	midnight := punch.Today(s.now(), s.location).Start

	visitors, err := s.VisitorRepository.ListSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}

	return visitor.ToResponses(visitors), nil
}
