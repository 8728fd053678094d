package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/presence-backend-go/internal/config"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/directory"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
)

type directoryRepositoryImpl struct {
	db *database.DB
}

func NewDirectoryRepository(db *database.DB) directory.DirectoryRepository {
	return &directoryRepositoryImpl{db: db}
}

// FindByPersonIDs implements directory.DirectoryRepository.
func (r *directoryRepositoryImpl) FindByPersonIDs(ctx context.Context, ids []string) ([]directory.Identity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > config.MaxDirectoryChunkSize {
		return nil, fmt.Errorf("directory lookup of %d ids exceeds the limit of %d", len(ids), config.MaxDirectoryChunkSize)
	}

	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT person_id, display_name, cost_center
		FROM directory_identities
		WHERE person_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query directory identities: %w", err)
	}
	defer rows.Close()

	var identities []directory.Identity
	for rows.Next() {
		var i directory.Identity
		if err := rows.Scan(&i.PersonID, &i.DisplayName, &i.CostCenter); err != nil {
			return nil, fmt.Errorf("scan directory identity: %w", err)
		}
		identities = append(identities, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directory identities: %w", err)
	}

	return identities, nil
}
