package services

import (
	"context"
	"fmt"

	"github.com/h2overflow/apiserver/types"
	"github.com/rs/zerolog"
)

// PictureJanitor deletes profile pictures that account events report as
// no longer referenced.
type PictureJanitor struct {
	blobs BlobStore
	log   zerolog.Logger
}

func NewPictureJanitor(blobs BlobStore, log zerolog.Logger) *PictureJanitor {
	return &PictureJanitor{blobs: blobs, log: log}
}

// Handle removes the event's object. Events without an object are ignored.
func (j *PictureJanitor) Handle(ctx context.Context, event types.AccountEvent) error {
	if event.ObjectKey == "" {
		return nil
	}
	if err := j.blobs.Delete(ctx, event.ObjectKey); err != nil {
		return fmt.Errorf("delete %s: %w", event.ObjectKey, err)
	}
	j.log.Info().
		Str("kind", string(event.Kind)).
		Str("user_id", event.UserID.String()).
		Str("object_key", event.ObjectKey).
		Msg("removed orphaned picture")
	return nil
}
