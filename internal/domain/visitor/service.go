package visitor

import "context"

type VisitorService interface {
	// CheckIn registers a visitor entering now.
	CheckIn(ctx context.Context, req CheckInRequest) (VisitorResponse, error)

	// ListToday returns visitors that entered since local midnight.
	ListToday(ctx context.Context) ([]VisitorResponse, error)
}
