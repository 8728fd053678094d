package punch

import (
	"context"
	"fmt"
)

// Page is one slice of a paginated feed. An empty NextPageToken marks the
// last page.
type Page struct {
	Records       []Record
	NextPageToken string
}

// Feed is a read-only, paginated source of today's punches.
type Feed interface {
	FetchPage(ctx context.Context, window Window, pageToken string) (Page, error)
}

// PunchRepository is the locally stored, append-only punch feed.
type PunchRepository interface {
	Feed

	// Append records a new punch. There is no update or delete.
	Append(ctx context.Context, p Punch) (Punch, error)
}

// FetchAll follows continuation tokens until the feed reports no more pages
// and concatenates the records.
func FetchAll(ctx context.Context, feed Feed, window Window) ([]Record, error) {
	var records []Record
	seen := make(map[string]struct{})
	token := ""

	for page := 1; ; page++ {
		result, err := feed.FetchPage(ctx, window, token)
		if err != nil {
			return nil, fmt.Errorf("fetch punch page %d: %w", page, err)
		}
		records = append(records, result.Records...)

		if result.NextPageToken == "" {
			return records, nil
		}
		if _, ok := seen[result.NextPageToken]; ok {
			return nil, fmt.Errorf("%w: %q", ErrPaginationLoop, result.NextPageToken)
		}
		seen[result.NextPageToken] = struct{}{}
		token = result.NextPageToken
	}
}
