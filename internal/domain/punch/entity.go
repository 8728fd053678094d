package punch

import (
	"strings"
	"time"
)

// Punch is a validated clock-in/clock-out event. Immutable once recorded.
type Punch struct {
	ID             int64
	PersonID       string
	Timestamp      time.Time
	FirstName      string
	LastName       string
	SourceTerminal *string
	IncidentCode   *string
}

// DisplayName joins the embedded name fields of the punch record.
func (p Punch) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Window is the half-open interval [Start, End) that makes up one local day.
type Window struct {
	Start time.Time
	End   time.Time
}

// Today returns the window of the local day containing now in loc.
// The next midnight is computed on the calendar, so DST days are 23 or 25
// hours long.
func Today(now time.Time, loc *time.Location) Window {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// Contains compares instants, never date strings.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Day is the window's calendar date, YYYY-MM-DD in the window's location.
func (w Window) Day() string {
	return w.Start.Format(time.DateOnly)
}
