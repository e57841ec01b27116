package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/h2overflow/apiserver/internal/services"
)

const (
	maxMultipartMemory   = 8 << 20
	formFieldPicture     = "profile_picture"
	formFieldUsername    = "username"
	formFieldPassword    = "password"
	formFieldName        = "name"
	formFieldLastNames   = "last_names"
	formFieldEmail       = "email"
	multipartFieldsSlack = 1 << 20
)

// ProfileRequest is the JSON form of a profile update. Absent and empty
// fields are left unchanged.
type ProfileRequest struct {
	Email     *string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	Username  *string `json:"username" form:"username" validate:"omitempty,max=64"`
	Password  *string `json:"password" form:"password" validate:"omitempty,min=6,max=72"`
	Name      *string `json:"name" form:"name" validate:"omitempty,max=100"`
	LastNames *string `json:"last_names" form:"last_names" validate:"omitempty,max=200"`
}

// normalize drops blank fields so they skip validation and stay unchanged.
func (p *ProfileRequest) normalize() {
	for _, field := range []**string{&p.Email, &p.Username, &p.Password, &p.Name, &p.LastNames} {
		*field = blankToNil(*field)
	}
}

func blankToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return value
}

func (p ProfileRequest) update() services.ProfileUpdate {
	return services.ProfileUpdate{
		Email:     p.Email,
		Username:  p.Username,
		Password:  p.Password,
		Name:      p.Name,
		LastNames: p.LastNames,
	}
}

// UpdateProfile applies a partial profile change and returns a refreshed
// token. Multipart bodies may carry a new profile picture.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claim, err := claimFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var (
		req     ProfileRequest
		picture *services.PictureUpload
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, picture, err = h.parseProfileForm(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.profile.Update(r.Context(), claim.UserID, req.update(), picture)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

// DeleteAccount removes the caller's account.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claim, err := claimFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.profile.DeleteAccount(r.Context(), claim.UserID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Picture streams the caller's profile picture.
func (h *UserHandler) Picture(w http.ResponseWriter, r *http.Request) {
	claim, err := claimFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	picture, err := h.profile.Picture(r.Context(), claim.UserID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	defer picture.Body.Close()

	w.Header().Set("Content-Type", picture.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, picture.Body); err != nil {
		h.log.Warn().Err(err).Str("user_id", claim.UserID.String()).Msg("picture stream interrupted")
	}
}

func (h *UserHandler) parseProfileForm(w http.ResponseWriter, r *http.Request) (ProfileRequest, *services.PictureUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPictureBytes+multipartFieldsSlack)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ProfileRequest{}, nil, fmt.Errorf("picture exceeds %d bytes", h.maxPictureBytes)
		}
		return ProfileRequest{}, nil, errors.New("invalid multipart form")
	}

	req := ProfileRequest{
		Email:     formValue(r.MultipartForm, formFieldEmail),
		Username:  formValue(r.MultipartForm, formFieldUsername),
		Password:  formValue(r.MultipartForm, formFieldPassword),
		Name:      formValue(r.MultipartForm, formFieldName),
		LastNames: formValue(r.MultipartForm, formFieldLastNames),
	}
	req.normalize()
	if err := validateStruct(&req); err != nil {
		return ProfileRequest{}, nil, err
	}

	picture, err := parsePictureFile(r.MultipartForm, h.maxPictureBytes)
	if err != nil {
		return ProfileRequest{}, nil, err
	}
	return req, picture, nil
}

// formValue returns nil for a missing or blank field so it is left
// unchanged.
func formValue(form *multipart.Form, field string) *string {
	values, ok := form.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	value := strings.TrimSpace(values[0])
	if value == "" {
		return nil
	}
	return &value
}

func parsePictureFile(form *multipart.Form, limit int64) (*services.PictureUpload, error) {
	files := form.File[formFieldPicture]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 {
		return nil, errors.New("only one profile picture is allowed")
	}

	fileHeader := files[0]
	if fileHeader.Size > limit {
		return nil, fmt.Errorf("picture exceeds %d bytes", limit)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read picture: %w", err)
	}
	defer file.Close()

	data, err := readFileLimited(file, limit)
	if err != nil {
		return nil, err
	}
	return &services.PictureUpload{Filename: fileHeader.Filename, Data: data}, nil
}

func readFileLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read picture: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("picture exceeds %d bytes", limit)
	}
	return data, nil
}
