package punch

import "context"

type PunchService interface {
	// RecordPunch validates and appends one terminal punch. A missing
	// timestamp means now.
	RecordPunch(ctx context.Context, req RecordPunchRequest) (PunchResponse, error)
}
