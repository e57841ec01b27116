package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/h2overflow/apiserver/internal/auth"
	"github.com/h2overflow/apiserver/internal/metrics"
	"github.com/h2overflow/apiserver/internal/services"
	"github.com/h2overflow/apiserver/types"
	"github.com/rs/zerolog"
)

// UserHandler serves registration, login and the current user's account.
type UserHandler struct {
	auth            *services.AuthService
	profile         *services.ProfileService
	log             zerolog.Logger
	maxPictureBytes int64
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(authService *services.AuthService, profile *services.ProfileService, log zerolog.Logger, maxPictureBytes int64) *UserHandler {
	return &UserHandler{
		auth:            authService,
		profile:         profile,
		log:             log,
		maxPictureBytes: maxPictureBytes,
	}
}

// UserRouter registers user routes. limit guards the unauthenticated
// credential endpoints.
func UserRouter(r chi.Router, h *UserHandler, limit func(http.Handler) http.Handler) {
	r.With(limit).Post("/create", h.Register)
	r.With(limit).Post("/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.auth))
		r.Get("/me", h.Me)
		r.Patch("/me", h.UpdateProfile)
		r.Delete("/me", h.DeleteAccount)
		r.Get("/me/picture", h.Picture)
	})
}

// RequireAuth verifies the bearer token and stores its claim in the
// request context.
func RequireAuth(verifier *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claim, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaim(r.Context(), claim)))
		})
	}
}

type RegisterRequest struct {
	Email     string         `json:"email" validate:"required,email,max=254"`
	Username  string         `json:"username" validate:"required,max=64"`
	Password  string         `json:"password" validate:"required,min=6,max=72"`
	Name      string         `json:"name" validate:"required,max=100"`
	LastNames string         `json:"last_names" validate:"max=200"`
	Units     types.Units    `json:"units" validate:"required,oneof=Lt Gal"`
	Language  types.Language `json:"language" validate:"required,oneof=English Spanish"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a freshly issued token.
type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// Register creates a new user account and returns a token.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		metrics.RecordAuthAttempt("register", false)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, _, err := h.auth.Register(r.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Username:  req.Username,
		Name:      req.Name,
		LastNames: req.LastNames,
		Units:     req.Units,
		Language:  req.Language,
	})
	metrics.RecordAuthAttempt("register", err == nil)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, TokenResponse{Success: true, Token: token})
}

// Login verifies credentials and returns a token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		metrics.RecordAuthAttempt("login", false)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, _, err := h.auth.Login(r.Context(), req.Email, req.Password)
	metrics.RecordAuthAttempt("login", err == nil)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeServiceError(w, h.log, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

// Me returns the claim carried by the caller's token.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claim, err := claimFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, claim)
}
