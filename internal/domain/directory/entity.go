package directory

// Identity maps a stable person identifier to a human display name.
type Identity struct {
	PersonID    string
	DisplayName string
	CostCenter  *string
}
