package punch

import (
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// RecordPunchRequest is what a terminal posts for a single punch.
type RecordPunchRequest struct {
	PersonID       string     `json:"person_id"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	SourceTerminal *string    `json:"source_terminal,omitempty"`
	IncidentCode   *string    `json:"incident_code,omitempty"`
}

func (r *RecordPunchRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PersonID) {
		errs = append(errs, validator.ValidationError{
			Field:   "person_id",
			Message: "person_id is required",
		})
	} else if !validator.IsValidPersonID(r.PersonID) {
		errs = append(errs, validator.ValidationError{
			Field:   "person_id",
			Message: "person_id may only contain letters, numbers, dots, colons, underscores, and hyphens",
		})
	}

	if r.Timestamp != nil && r.Timestamp.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp must be a valid RFC 3339 instant",
		})
	}

	if r.IncidentCode != nil && !validator.IsInSlice(*r.IncidentCode, IncidentCodes) {
		errs = append(errs, validator.ValidationError{
			Field:   "incident_code",
			Message: "incident_code must be one of: late_in, early_out, forgot_punch",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Incident codes a terminal may attach to a punch. They are recorded but do
// not influence presence.
var IncidentCodes = []string{"late_in", "early_out", "forgot_punch"}

type PunchResponse struct {
	ID             int64   `json:"id"`
	PersonID       string  `json:"person_id"`
	Timestamp      string  `json:"timestamp"`
	SourceTerminal *string `json:"source_terminal,omitempty"`
	IncidentCode   *string `json:"incident_code,omitempty"`
}

func ToResponse(p Punch) PunchResponse {
	return PunchResponse{
		ID:             p.ID,
		PersonID:       p.PersonID,
		Timestamp:      p.Timestamp.UTC().Format(time.RFC3339),
		SourceTerminal: p.SourceTerminal,
		IncidentCode:   p.IncidentCode,
	}
}
