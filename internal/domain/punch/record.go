package punch

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// Record is a punch as it arrives from a feed, before validation.
type Record struct {
	PersonID       string  `json:"person_id"`
	Timestamp      string  `json:"timestamp"`
	FirstName      string  `json:"first_name,omitempty"`
	LastName       string  `json:"last_name,omitempty"`
	SourceTerminal *string `json:"source_terminal,omitempty"`
	IncidentCode   *string `json:"incident_code,omitempty"`
}

// Layouts without a zone are read in the window's location.
var localLayouts = []string{"2006-01-02T15:04:05", time.DateTime}

// ParseTimestamp accepts RFC 3339 instants, or zone-less local date-times
// which are interpreted in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	if t, ok := validator.IsValidDateTime(raw); ok {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}

// Normalize validates the record against the day window. Person ids are
// trimmed and otherwise treated as case-sensitive opaque strings.
func (r Record) Normalize(w Window) (Punch, error) {
	personID := strings.TrimSpace(r.PersonID)
	if personID == "" {
		return Punch{}, ErrMissingPersonID
	}

	ts, err := ParseTimestamp(r.Timestamp, w.Start.Location())
	if err != nil {
		return Punch{}, err
	}
	if !w.Contains(ts) {
		return Punch{}, ErrOutsideWindow
	}

	return Punch{
		PersonID:       personID,
		Timestamp:      ts,
		FirstName:      strings.TrimSpace(r.FirstName),
		LastName:       strings.TrimSpace(r.LastName),
		SourceTerminal: r.SourceTerminal,
		IncidentCode:   r.IncidentCode,
	}, nil
}

// ToRecord renders a stored punch in feed form.
func (p Punch) ToRecord() Record {
	return Record{
		PersonID:       p.PersonID,
		Timestamp:      p.Timestamp.UTC().Format(time.RFC3339Nano),
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		SourceTerminal: p.SourceTerminal,
		IncidentCode:   p.IncidentCode,
	}
}
