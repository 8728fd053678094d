package punch

import "errors"

var (
	ErrMissingPersonID  = errors.New("punch has no person identifier")
	ErrInvalidTimestamp = errors.New("punch timestamp is not parseable")
	ErrOutsideWindow    = errors.New("punch timestamp is outside the day window")
	ErrInvalidPageToken = errors.New("invalid page token")
	ErrPaginationLoop   = errors.New("punch feed returned a page token it already issued")
)
