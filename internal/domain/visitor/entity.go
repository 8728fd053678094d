package visitor

import "time"

// Visitor is on site from check-in until an explicit checkout. Visitors are
// not governed by the punch parity rule.
type Visitor struct {
	ID        string
	Name      string
	Company   string
	EnteredAt time.Time
}
