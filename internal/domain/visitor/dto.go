package visitor

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

type CheckInRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Name = strings.TrimSpace(r.Name)
	r.Company = strings.TrimSpace(r.Company)

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	} else if len(r.Name) > 120 {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name must not exceed 120 characters",
		})
	}

	if len(r.Company) > 120 {
		errs = append(errs, validator.ValidationError{
			Field:   "company",
			Message: "company must not exceed 120 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type VisitorResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	EnteredAt string `json:"entered_at"`
}

func ToResponse(v Visitor) VisitorResponse {
	return VisitorResponse{
		ID:        v.ID,
		Name:      v.Name,
		Company:   v.Company,
		EnteredAt: v.EnteredAt.Format(time.RFC3339),
	}
}

func ToResponses(visitors []Visitor) []VisitorResponse {
	out := make([]VisitorResponse, 0, len(visitors))
	for _, v := range visitors {
		out = append(out, ToResponse(v))
	}
	return out
}
