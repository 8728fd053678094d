package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type presenceRepositoryImpl struct {
	db *database.DB
}

func NewPresenceRepository(db *database.DB) presence.PresenceRepository {
	return &presenceRepositoryImpl{db: db}
}

// List implements presence.PresenceRepository.
func (r *presenceRepositoryImpl) List(ctx context.Context) ([]presence.Entry, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT person_id, display_name, last_entry_time, movement_count, updated_at
		FROM presence_entries
		ORDER BY person_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list presence entries: %w", err)
	}
	defer rows.Close()

	var entries []presence.Entry
	for rows.Next() {
		var e presence.Entry
		if err := rows.Scan(&e.PersonID, &e.DisplayName, &e.LastEntryTime, &e.MovementCount, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan presence entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presence entries: %w", err)
	}

	return entries, nil
}

// ListOverrides implements presence.PresenceRepository.
func (r *presenceRepositoryImpl) ListOverrides(ctx context.Context) ([]presence.Override, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT person_id, day::text, movement_count, checked_out_at
		FROM presence_overrides
		ORDER BY person_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list presence overrides: %w", err)
	}
	defer rows.Close()

	var overrides []presence.Override
	for rows.Next() {
		var o presence.Override
		if err := rows.Scan(&o.PersonID, &o.Day, &o.MovementCount, &o.CheckedOutAt); err != nil {
			return nil, fmt.Errorf("scan presence override: %w", err)
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presence overrides: %w", err)
	}

	return overrides, nil
}

// Apply implements presence.PresenceRepository.
func (r *presenceRepositoryImpl) Apply(ctx context.Context, b presence.Batch) error {
	if b.IsEmpty() {
		return nil
	}

	return WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}

		for _, e := range b.Upserts {
			batch.Queue(`
				INSERT INTO presence_entries (person_id, display_name, last_entry_time, movement_count, updated_at)
				VALUES ($1, $2, $3, $4, NOW())
				ON CONFLICT (person_id) DO UPDATE
				SET display_name = EXCLUDED.display_name,
					last_entry_time = EXCLUDED.last_entry_time,
					movement_count = EXCLUDED.movement_count,
					updated_at = NOW()
			`, e.PersonID, e.DisplayName, e.LastEntryTime, e.MovementCount)
		}
		if len(b.Deletes) > 0 {
			batch.Queue(`DELETE FROM presence_entries WHERE person_id = ANY($1)`, b.Deletes)
		}
		if len(b.ClearOverrides) > 0 {
			batch.Queue(`DELETE FROM presence_overrides WHERE person_id = ANY($1)`, b.ClearOverrides)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("apply presence batch: %w", err)
		}
		return nil
	})
}

// Checkout implements presence.PresenceRepository.
func (r *presenceRepositoryImpl) Checkout(ctx context.Context, personID string, day string, at time.Time) (bool, error) {
	var existed bool

	err := WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		txCtx := WithTx(ctx, tx)
		q := GetQuerier(txCtx, r.db)

		var count int
		err := q.QueryRow(txCtx, `
			DELETE FROM presence_entries
			WHERE person_id = $1
			RETURNING movement_count
		`, personID).Scan(&count)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete presence entry: %w", err)
		}
		existed = true

		_, err = q.Exec(txCtx, `
			INSERT INTO presence_overrides (person_id, day, movement_count, checked_out_at)
			VALUES ($1, $2::date, $3, $4)
			ON CONFLICT (person_id) DO UPDATE
			SET day = EXCLUDED.day,
				movement_count = EXCLUDED.movement_count,
				checked_out_at = EXCLUDED.checked_out_at
		`, personID, day, count, at)
		if err != nil {
			return fmt.Errorf("record checkout override: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return existed, nil
}
