package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/h2overflow/apiserver/types"
)

const userColumns = `id, email, username, name, last_names, units, language,
		       profile_picture, password_hash, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads userColumns in order, followed by any extra columns.
func scanUser(row rowScanner, extra ...any) (types.User, error) {
	var user types.User
	dest := []any{
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Name,
		&user.LastNames,
		&user.Units,
		&user.Language,
		&user.ProfilePicture,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, email, username, name, last_names, units, language,
		                   profile_picture, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.Username,
		user.Name,
		user.LastNames,
		user.Units,
		user.Language,
		user.ProfilePicture,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

// Patch applies the non-nil fields of patch in a single statement and
// returns the stored row with the picture key it held before the update.
// The row lock taken by the CTE orders concurrent patches, so each one
// sees the key its predecessor wrote.
func (r *UserRepository) Patch(ctx context.Context, id uuid.UUID, patch types.UserPatch) (types.PatchResult, error) {
	const query = `
		WITH prev AS (
			SELECT id, profile_picture
			FROM users
			WHERE id = $8
			FOR UPDATE
		)
		UPDATE users u
		SET email = COALESCE($1, u.email),
			username = COALESCE($2, u.username),
			name = COALESCE($3, u.name),
			last_names = COALESCE($4, u.last_names),
			password_hash = COALESCE($5, u.password_hash),
			profile_picture = COALESCE($6, u.profile_picture),
			updated_at = $7
		FROM prev
		WHERE u.id = prev.id
		RETURNING u.id, u.email, u.username, u.name, u.last_names, u.units, u.language,
		          u.profile_picture, u.password_hash, u.created_at, u.updated_at,
		          prev.profile_picture`
	row := r.db.QueryRowContext(
		ctx,
		query,
		patch.Email,
		patch.Username,
		patch.Name,
		patch.LastNames,
		patch.PasswordHash,
		patch.ProfilePicture,
		time.Now().UTC(),
		id,
	)
	var previous sql.NullString
	user, err := scanUser(row, &previous)
	if err != nil {
		return types.PatchResult{}, mapWriteError(err)
	}
	result := types.PatchResult{User: user}
	if previous.Valid {
		result.PreviousPicture = &previous.String
	}
	return result, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
