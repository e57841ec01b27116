package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/h2overflow/apiserver/internal/store"
	"github.com/h2overflow/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Patch(ctx context.Context, id uuid.UUID, patch types.UserPatch) (types.PatchResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenIssuer signs and verifies claims.
type TokenIssuer interface {
	Issue(claim types.AuthClaim) (string, error)
	Verify(token string) (types.AuthClaim, error)
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email     string
	Password  string
	Username  string
	Name      string
	LastNames string
	Units     types.Units
	Language  types.Language
}

// ProfileUpdate is a partial profile change. Nil or empty fields are ignored.
type ProfileUpdate struct {
	Email          *string
	Username       *string
	Password       *string
	Name           *string
	LastNames      *string
	ProfilePicture *string
}

// AuthService encapsulates credential use-cases.
type AuthService struct {
	users      UserRepository
	tokens     TokenIssuer
	bcryptCost int
}

func NewAuthService(users UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// WithBcryptCost overrides the hashing cost.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// Register creates a user and returns a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, types.AuthClaim, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return "", types.AuthClaim{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return "", types.AuthClaim{}, fmt.Errorf("%w: email already in use", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", types.AuthClaim{}, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return "", types.AuthClaim{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		ID:           uuid.New(),
		Email:        in.Email,
		Username:     strings.TrimSpace(in.Username),
		Name:         strings.TrimSpace(in.Name),
		LastNames:    strings.TrimSpace(in.LastNames),
		Units:        in.Units,
		Language:     in.Language,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", types.AuthClaim{}, fmt.Errorf("%w: email already in use", ErrConflict)
		}
		return "", types.AuthClaim{}, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// Login checks credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, types.AuthClaim, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", types.AuthClaim{}, fmt.Errorf("%w: no account for email", ErrNotFound)
		}
		return "", types.AuthClaim{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", types.AuthClaim{}, fmt.Errorf("%w: wrong password", ErrUnauthorized)
	}

	return s.issue(user)
}

// Verify validates a token and returns the claim it carries.
func (s *AuthService) Verify(token string) (types.AuthClaim, error) {
	claim, err := s.tokens.Verify(token)
	if err != nil {
		return types.AuthClaim{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claim, nil
}

// Get loads the current state of a user.
func (s *AuthService) Get(ctx context.Context, userID uuid.UUID) (types.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: user", ErrNotFound)
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateProfile applies the present fields of update and returns a token
// reflecting the stored result.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (string, types.User, error) {
	token, result, err := s.patchProfile(ctx, userID, update)
	if err != nil {
		return "", types.User{}, err
	}
	return token, result.User, nil
}

func (s *AuthService) patchProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (string, types.PatchResult, error) {
	patch := types.UserPatch{
		Email:          trimmed(update.Email),
		Username:       trimmed(update.Username),
		Name:           trimmed(update.Name),
		LastNames:      trimmed(update.LastNames),
		ProfilePicture: trimmed(update.ProfilePicture),
	}
	if update.Password != nil && *update.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*update.Password), s.bcryptCost)
		if err != nil {
			return "", types.PatchResult{}, fmt.Errorf("hash password: %w", err)
		}
		hash := string(hashed)
		patch.PasswordHash = &hash
	}

	result, err := s.users.Patch(ctx, userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return "", types.PatchResult{}, fmt.Errorf("%w: user", ErrNotFound)
		case errors.Is(err, store.ErrDuplicate):
			return "", types.PatchResult{}, fmt.Errorf("%w: email already in use", ErrConflict)
		}
		return "", types.PatchResult{}, fmt.Errorf("update user: %w", err)
	}

	token, _, err := s.issue(result.User)
	if err != nil {
		return "", types.PatchResult{}, err
	}
	return token, result, nil
}

// DeleteAccount removes the user row and returns what was deleted.
// Activity records are left in place.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) (types.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return types.User{}, err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: user", ErrNotFound)
		}
		return types.User{}, fmt.Errorf("delete user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user types.User) (string, types.AuthClaim, error) {
	claim := user.Claim()
	token, err := s.tokens.Issue(claim)
	if err != nil {
		return "", types.AuthClaim{}, fmt.Errorf("issue token: %w", err)
	}
	return token, claim, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
