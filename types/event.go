package types

import (
	"time"

	"github.com/google/uuid"
)

// AccountEventKind names what happened to an account.
type AccountEventKind string

const (
	// EventPictureReplaced is published when a new profile picture supersedes an old one.
	EventPictureReplaced AccountEventKind = "picture.replaced"
	// EventAccountDeleted is published after a user row is removed.
	EventAccountDeleted AccountEventKind = "account.deleted"
)

// AccountEvent reports account changes that leave blobs behind.
type AccountEvent struct {
	Kind       AccountEventKind `json:"kind"`
	UserID     uuid.UUID        `json:"user_id"`
	ObjectKey  string           `json:"object_key,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
