package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const operatorColumns = `id::text, email, full_name, password_hash, google_id, role, created_at, updated_at`

type userRepositoryImpl struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) user.UserRepository {
	return &userRepositoryImpl{db: db}
}

func scanOperator(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.PasswordHash,
		&u.GoogleID,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, user.ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("scan operator: %w", err)
	}
	return u, nil
}

// GetByEmail implements user.UserRepository.
func (r *userRepositoryImpl) GetByEmail(ctx context.Context, email string) (user.User, error) {
	q := GetQuerier(ctx, r.db)
	return scanOperator(q.QueryRow(ctx, `SELECT `+operatorColumns+` FROM operators WHERE email = $1`, email))
}

// GetByID implements user.UserRepository.
func (r *userRepositoryImpl) GetByID(ctx context.Context, id string) (user.User, error) {
	q := GetQuerier(ctx, r.db)
	return scanOperator(q.QueryRow(ctx, `SELECT `+operatorColumns+` FROM operators WHERE id::text = $1`, id))
}

// LinkGoogleAccount implements user.UserRepository. Only an operator that
// already exists can be linked; Google sign-in never creates operators.
func (r *userRepositoryImpl) LinkGoogleAccount(ctx context.Context, googleID string, email string) (user.User, error) {
	q := GetQuerier(ctx, r.db)
	return scanOperator(q.QueryRow(ctx, `
		UPDATE operators
		SET google_id = $1, updated_at = NOW()
		WHERE email = $2 AND (google_id IS NULL OR google_id = $1)
		RETURNING `+operatorColumns, googleID, email))
}
