// Package auth issues and verifies the signed bearer tokens that carry
// a user's claim between requests.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/h2overflow/apiserver/types"
)

// ErrInvalidToken covers missing, malformed, tampered and expired tokens.
var ErrInvalidToken = errors.New("invalid token")

const issuer = "h2overflow"

type claims struct {
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	LastNames      string         `json:"last_names"`
	Username       string         `json:"username"`
	ProfilePicture *string        `json:"profile_picture"`
	Units          types.Units    `json:"units"`
	Language       types.Language `json:"language"`
	jwt.RegisteredClaims
}

// Tokens signs claims with an HMAC secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs claim into a token valid for the configured TTL.
func (t *Tokens) Issue(claim types.AuthClaim) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:          claim.Email,
		Name:           claim.Name,
		LastNames:      claim.LastNames,
		Username:       claim.Username,
		ProfilePicture: claim.ProfilePicture,
		Units:          claim.Units,
		Language:       claim.Language,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   claim.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	return token.SignedString(t.secret)
}

// Verify checks the signature and expiry of tokenString and returns its claim.
func (t *Tokens) Verify(tokenString string) (types.AuthClaim, error) {
	if strings.TrimSpace(tokenString) == "" {
		return types.AuthClaim{}, ErrInvalidToken
	}

	var parsed claims
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return types.AuthClaim{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return types.AuthClaim{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(strings.TrimSpace(parsed.Subject))
	if err != nil {
		return types.AuthClaim{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return types.AuthClaim{
		UserID:         userID,
		Email:          parsed.Email,
		Name:           parsed.Name,
		LastNames:      parsed.LastNames,
		Username:       parsed.Username,
		ProfilePicture: parsed.ProfilePicture,
		Units:          parsed.Units,
		Language:       parsed.Language,
	}, nil
}

// BearerToken extracts the token from the Authorization header. Both
// "Bearer <token>" and a bare token are accepted.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 1 {
		if strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("invalid authorization")
		}
		return parts[0], nil
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
