package postgresql

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
)

const defaultPunchPageSize = 500

type punchRepositoryImpl struct {
	db       *database.DB
	pageSize int
}

func NewPunchRepository(db *database.DB, pageSize int) punch.PunchRepository {
	if pageSize <= 0 {
		pageSize = defaultPunchPageSize
	}
	return &punchRepositoryImpl{db: db, pageSize: pageSize}
}

// FetchPage implements punch.Feed. Pages are keyed on the punch id; the
// continuation token is the last id returned.
func (r *punchRepositoryImpl) FetchPage(ctx context.Context, window punch.Window, pageToken string) (punch.Page, error) {
	var after int64
	if pageToken != "" {
		id, err := strconv.ParseInt(pageToken, 10, 64)
		if err != nil || id < 0 {
			return punch.Page{}, fmt.Errorf("%w: %q", punch.ErrInvalidPageToken, pageToken)
		}
		after = id
	}

	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT id, person_id, punched_at, first_name, last_name, source_terminal, incident_code
		FROM punches
		WHERE punched_at >= $1 AND punched_at < $2 AND id > $3
		ORDER BY id
		LIMIT $4
	`, window.Start, window.End, after, r.pageSize)
	if err != nil {
		return punch.Page{}, fmt.Errorf("query punches: %w", err)
	}
	defer rows.Close()

	var (
		page   punch.Page
		lastID int64
	)
	for rows.Next() {
		var p punch.Punch
		if err := rows.Scan(&p.ID, &p.PersonID, &p.Timestamp, &p.FirstName, &p.LastName, &p.SourceTerminal, &p.IncidentCode); err != nil {
			return punch.Page{}, fmt.Errorf("scan punch: %w", err)
		}
		page.Records = append(page.Records, p.ToRecord())
		lastID = p.ID
	}
	if err := rows.Err(); err != nil {
		return punch.Page{}, fmt.Errorf("iterate punches: %w", err)
	}

	if len(page.Records) == r.pageSize {
		page.NextPageToken = strconv.FormatInt(lastID, 10)
	}

	return page, nil
}

// Append implements punch.PunchRepository.
func (r *punchRepositoryImpl) Append(ctx context.Context, p punch.Punch) (punch.Punch, error) {
	q := GetQuerier(ctx, r.db)

	err := q.QueryRow(ctx, `
		INSERT INTO punches (person_id, punched_at, first_name, last_name, source_terminal, incident_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.PersonID, p.Timestamp, p.FirstName, p.LastName, p.SourceTerminal, p.IncidentCode).Scan(&p.ID)
	if err != nil {
		return punch.Punch{}, fmt.Errorf("insert punch: %w", err)
	}

	return p, nil
}
