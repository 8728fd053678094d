package directory

import "context"

type DirectoryRepository interface {
	// FindByPersonIDs returns the identities matching ids. Callers keep ids
	// within the store's "IN" filter limit; unknown ids are omitted.
	FindByPersonIDs(ctx context.Context, ids []string) ([]Identity, error)
}
