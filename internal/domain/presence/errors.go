package presence

import "errors"

var (
	ErrPassPanicked     = errors.New("reconciliation pass panicked")
	ErrCheckoutPanicked = errors.New("checkout panicked")
	ErrPersonIDRequired = errors.New("person id is required")
	ErrWatchLost        = errors.New("change notifications stopped")
)
