package visitor

import "errors"

var (
	ErrInvalidID = errors.New("visitor id must be a UUID")
)
