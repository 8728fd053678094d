package punch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
)

type PunchServiceImpl struct {
	punch.PunchRepository
	now func() time.Time
}

func NewPunchService(punchRepository punch.PunchRepository) punch.PunchService {
	return &PunchServiceImpl{
		PunchRepository: punchRepository,
		now:             time.Now,
	}
}

// RecordPunch implements punch.PunchService.
func (s *PunchServiceImpl) RecordPunch(ctx context.Context, req punch.RecordPunchRequest) (punch.PunchResponse, error) {
	if err := req.Validate(); err != nil {
		return punch.PunchResponse{}, err
	}

	ts := s.now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	created, err := s.PunchRepository.Append(ctx, punch.Punch{
		PersonID:       req.PersonID,
		Timestamp:      ts,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		SourceTerminal: req.SourceTerminal,
		IncidentCode:   req.IncidentCode,
	})
	if err != nil {
		return punch.PunchResponse{}, fmt.Errorf("failed to record punch: %w", err)
	}

	slog.Debug("Punch recorded", "punch_id", created.ID, "person_id", created.PersonID)
	return punch.ToResponse(created), nil
}
