package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/h2overflow/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"id", "email", "username", "name", "last_names", "units", "language",
	"profile_picture", "password_hash", "created_at", "updated_at",
}

func newUserRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db), mock
}

func TestUserGetByEmail_Found(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	id := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows(userRowColumns).
		AddRow(id.String(), "ana@example.com", "ana", "Ana", "Lopez", "Lt", "Spanish", nil, "hash", now, now)
	mock.ExpectQuery(`(?s)SELECT\s+id, email.*FROM users\s+WHERE email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, types.UnitsLiters, user.Units)
	assert.Equal(t, types.LanguageSpanish, user.Language)
	assert.Nil(t, user.ProfilePicture)
	assert.Equal(t, "hash", user.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByID_NotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`(?s)FROM users\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserCreate_Duplicate(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`(?s)INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	_, err := repo.Create(context.Background(), types.User{ID: uuid.New(), Email: "dup@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserCreate_Success(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	user := types.User{
		ID:           uuid.New(),
		Email:        "ana@example.com",
		Username:     "ana",
		Name:         "Ana",
		LastNames:    "Lopez",
		Units:        types.UnitsGallons,
		Language:     types.LanguageEnglish,
		PasswordHash: "hash",
	}

	mock.ExpectExec(`(?s)INSERT INTO users`).
		WithArgs(user.ID, user.Email, "ana", "Ana", "Lopez", "Gal", "English", nil, "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPatch_OnlyProvidedFields(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	id := uuid.New()
	now := time.Now().UTC()
	name := "Xochitl"

	rows := sqlmock.NewRows(append(userRowColumns, "previous_picture")).
		AddRow(id.String(), "ana@example.com", "ana", name, "Lopez", "Lt", "English", "pictures/a.png", "hash", now, now, "pictures/a.png")
	mock.ExpectQuery(`(?s)WITH prev AS \(.*FOR UPDATE.*UPDATE users u\s+SET email = COALESCE\(\$1, u\.email\).*RETURNING.*prev\.profile_picture`).
		WithArgs(nil, nil, name, nil, nil, nil, sqlmock.AnyArg(), id).
		WillReturnRows(rows)

	result, err := repo.Patch(context.Background(), id, types.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, result.User.Name)
	require.NotNil(t, result.User.ProfilePicture)
	assert.Equal(t, "pictures/a.png", *result.User.ProfilePicture)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPatch_ReturnsReplacedPictureFromSameStatement(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	id := uuid.New()
	now := time.Now().UTC()
	picture := "profile-pictures/b.png"

	rows := sqlmock.NewRows(append(userRowColumns, "previous_picture")).
		AddRow(id.String(), "ana@example.com", "ana", "Ana", "Lopez", "Lt", "English", picture, "hash", now, now, "profile-pictures/a.png")
	mock.ExpectQuery(`(?s)WITH prev AS.*UPDATE users u`).
		WithArgs(nil, nil, nil, nil, nil, picture, sqlmock.AnyArg(), id).
		WillReturnRows(rows)

	result, err := repo.Patch(context.Background(), id, types.UserPatch{ProfilePicture: &picture})
	require.NoError(t, err)
	require.NotNil(t, result.PreviousPicture)
	assert.Equal(t, "profile-pictures/a.png", *result.PreviousPicture)
	assert.Equal(t, picture, *result.User.ProfilePicture)

	rows = sqlmock.NewRows(append(userRowColumns, "previous_picture")).
		AddRow(id.String(), "ana@example.com", "ana", "Ana", "Lopez", "Lt", "English", picture, "hash", now, now, nil)
	mock.ExpectQuery(`(?s)WITH prev AS.*UPDATE users u`).
		WillReturnRows(rows)

	result, err = repo.Patch(context.Background(), id, types.UserPatch{ProfilePicture: &picture})
	require.NoError(t, err)
	assert.Nil(t, result.PreviousPicture)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPatch_MissingUser(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`(?s)WITH prev AS.*UPDATE users u`).
		WillReturnRows(sqlmock.NewRows(append(userRowColumns, "previous_picture")))

	_, err := repo.Patch(context.Background(), uuid.New(), types.UserPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserPatch_EmailTaken(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	email := "taken@example.com"

	mock.ExpectQuery(`(?s)UPDATE users u`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Patch(context.Background(), uuid.New(), types.UserPatch{Email: &email})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserDelete(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), id))

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)

	mock.ExpectExec(`DELETE FROM users`).
		WillReturnError(errors.New("db down"))
	assert.EqualError(t, repo.Delete(context.Background(), id), "db down")
}
