package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/visitor"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
)

type visitorRepositoryImpl struct {
	db *database.DB
}

func NewVisitorRepository(db *database.DB) visitor.VisitorRepository {
	return &visitorRepositoryImpl{db: db}
}

// Create implements visitor.VisitorRepository.
func (r *visitorRepositoryImpl) Create(ctx context.Context, v visitor.Visitor) (visitor.Visitor, error) {
	q := GetQuerier(ctx, r.db)

	var created visitor.Visitor
	err := q.QueryRow(ctx, `
		INSERT INTO visitor_entries (id, name, company, entered_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, name, company, entered_at
	`, v.ID, v.Name, v.Company, v.EnteredAt).Scan(&created.ID, &created.Name, &created.Company, &created.EnteredAt)
	if err != nil {
		return visitor.Visitor{}, fmt.Errorf("insert visitor: %w", err)
	}

	return created, nil
}

// ListSince implements visitor.VisitorRepository.
func (r *visitorRepositoryImpl) ListSince(ctx context.Context, since time.Time) ([]visitor.Visitor, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id::text, name, company, entered_at
		FROM visitor_entries
		WHERE entered_at >= $1
		ORDER BY entered_at, id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	defer rows.Close()

	var visitors []visitor.Visitor
	for rows.Next() {
		var v visitor.Visitor
		if err := rows.Scan(&v.ID, &v.Name, &v.Company, &v.EnteredAt); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		visitors = append(visitors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visitors: %w", err)
	}

	return visitors, nil
}

// Delete implements visitor.VisitorRepository.
func (r *visitorRepositoryImpl) Delete(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM visitor_entries WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete visitor: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
