package types

import (
	"time"

	"github.com/google/uuid"
)

// Units is the measurement unit a user prefers for displayed water savings.
type Units string

const (
	UnitsLiters  Units = "Lt"
	UnitsGallons Units = "Gal"
)

// LitersPerGallon converts between the two supported units.
const LitersPerGallon = 3.785411784

// FromLiters converts a liters amount into u.
func (u Units) FromLiters(liters float64) float64 {
	if u == UnitsGallons {
		return liters / LitersPerGallon
	}
	return liters
}

// Language is the user's interface language.
type Language string

const (
	LanguageEnglish Language = "English"
	LanguageSpanish Language = "Spanish"
)

// User represents an account in the system.
// It contains identity, preferences, and audit metadata.
type User struct {
	// ID is the immutable surrogate identifier assigned at registration.
	// Activity records reference users through it.
	ID uuid.UUID `json:"id" db:"id"`

	// Email is the unique login key. It may change over time.
	Email string `json:"email" db:"email"`

	// Username is the display handle chosen by the user.
	Username string `json:"username" db:"username"`

	// Name is the user's given name.
	Name string `json:"name" db:"name"`

	// LastNames holds the user's family names.
	LastNames string `json:"last_names" db:"last_names"`

	// Units is the preferred unit for displayed savings.
	Units Units `json:"units" db:"units"`

	// Language is the preferred interface language.
	Language Language `json:"language" db:"language"`

	// ProfilePicture is the blob store key of the current picture, if any.
	ProfilePicture *string `json:"profile_picture" db:"profile_picture"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserPatch carries a partial profile update. Nil fields are left unchanged.
type UserPatch struct {
	Email          *string
	Username       *string
	Name           *string
	LastNames      *string
	PasswordHash   *string
	ProfilePicture *string
}

// PatchResult is a patched user and the picture key it held beforehand.
type PatchResult struct {
	User            User
	PreviousPicture *string
}

// AuthClaim is the non-secret snapshot of a user embedded in issued tokens.
type AuthClaim struct {
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	LastNames      string    `json:"last_names"`
	Username       string    `json:"username"`
	ProfilePicture *string   `json:"profile_picture"`
	Units          Units     `json:"units"`
	Language       Language  `json:"language"`
}

// Claim builds the token claim for u.
func (u User) Claim() AuthClaim {
	return AuthClaim{
		UserID:         u.ID,
		Email:          u.Email,
		Name:           u.Name,
		LastNames:      u.LastNames,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		Units:          u.Units,
		Language:       u.Language,
	}
}
