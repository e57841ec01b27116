package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2overflow/apiserver/types"
	"github.com/rs/zerolog"
)

const picturePrefix = "profile-pictures"

// BlobStore stores profile picture bytes.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// EventPublisher announces account changes that leave blobs behind.
type EventPublisher interface {
	PublishAccountEvent(ctx context.Context, event types.AccountEvent) error
}

// PictureUpload is a new profile picture. Filename is only logged; the
// stored type comes from the content.
type PictureUpload struct {
	Filename string
	Data     []byte
}

// Picture is a stored profile picture opened for reading.
type Picture struct {
	Body        io.ReadCloser
	ContentType string
}

// ProfileService orchestrates profile updates, pictures and account removal.
type ProfileService struct {
	auth   *AuthService
	blobs  BlobStore
	events EventPublisher
	log    zerolog.Logger
}

func NewProfileService(auth *AuthService, blobs BlobStore, events EventPublisher, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		auth:   auth,
		blobs:  blobs,
		events: events,
		log:    log,
	}
}

// Update applies a partial profile change, storing picture first when one
// is supplied. It returns a refreshed token.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, update ProfileUpdate, picture *PictureUpload) (string, error) {
	if picture != nil {
		key, err := s.storePicture(ctx, userID, *picture)
		if err != nil {
			return "", err
		}
		update.ProfilePicture = &key
	}

	token, result, err := s.auth.patchProfile(ctx, userID, update)
	if err != nil {
		if update.ProfilePicture != nil {
			s.deleteBlob(ctx, *update.ProfilePicture)
		}
		return "", err
	}

	previous, current := result.PreviousPicture, result.User.ProfilePicture
	if previous != nil && *previous != "" && current != nil && *previous != *current {
		s.publish(ctx, types.AccountEvent{
			Kind:      types.EventPictureReplaced,
			UserID:    userID,
			ObjectKey: *previous,
		})
	}
	return token, nil
}

// Picture opens the user's current profile picture.
func (s *ProfileService) Picture(ctx context.Context, userID uuid.UUID) (Picture, error) {
	user, err := s.auth.Get(ctx, userID)
	if err != nil {
		return Picture{}, err
	}
	if user.ProfilePicture == nil || *user.ProfilePicture == "" {
		return Picture{}, fmt.Errorf("%w: no profile picture", ErrNotFound)
	}

	body, err := s.blobs.Get(ctx, *user.ProfilePicture)
	if err != nil {
		return Picture{}, fmt.Errorf("open picture: %w", err)
	}

	return Picture{Body: body, ContentType: pictureContentType(*user.ProfilePicture)}, nil
}

// DeleteAccount removes the user and announces the orphaned picture.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	user, err := s.auth.DeleteAccount(ctx, userID)
	if err != nil {
		return err
	}

	event := types.AccountEvent{Kind: types.EventAccountDeleted, UserID: userID}
	if user.ProfilePicture != nil {
		event.ObjectKey = *user.ProfilePicture
	}
	s.publish(ctx, event)
	return nil
}

func (s *ProfileService) storePicture(ctx context.Context, userID uuid.UUID, picture PictureUpload) (string, error) {
	if len(picture.Data) == 0 {
		return "", fmt.Errorf("%w: empty picture", ErrValidation)
	}

	contentType := http.DetectContentType(picture.Data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: picture must be an image, got %s", ErrValidation, contentType)
	}

	ext, ok := pictureExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type %s", ErrValidation, contentType)
	}
	key := fmt.Sprintf("%s/%s/%s%s", picturePrefix, userID, uuid.New(), ext)
	if err := s.blobs.Put(ctx, key, bytes.NewReader(picture.Data), int64(len(picture.Data)), contentType); err != nil {
		return "", fmt.Errorf("store picture: %w", err)
	}
	s.log.Debug().
		Str("object_key", key).
		Str("content_type", contentType).
		Str("filename", picture.Filename).
		Msg("stored profile picture")
	return key, nil
}

func (s *ProfileService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("object_key", key).Msg("failed to remove unused picture")
	}
}

func (s *ProfileService) publish(ctx context.Context, event types.AccountEvent) {
	event.OccurredAt = time.Now().UTC()
	if err := s.events.PublishAccountEvent(ctx, event); err != nil {
		s.log.Warn().
			Err(err).
			Str("kind", string(event.Kind)).
			Str("user_id", event.UserID.String()).
			Str("object_key", event.ObjectKey).
			Msg("failed to publish account event")
	}
}

// pictureExtensions maps sniffed image types to the key extension they are
// stored under. The client's filename never contributes to the key.
var pictureExtensions = map[string]string{
	"image/png":    ".png",
	"image/jpeg":   ".jpg",
	"image/gif":    ".gif",
	"image/webp":   ".webp",
	"image/bmp":    ".bmp",
	"image/x-icon": ".ico",
}

// pictureContentType is the inverse of pictureExtensions. Keys with any
// other extension are served as opaque bytes.
func pictureContentType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	for contentType, known := range pictureExtensions {
		if known == ext {
			return contentType
		}
	}
	return "application/octet-stream"
}
