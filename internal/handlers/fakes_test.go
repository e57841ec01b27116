package handlers

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/h2overflow/apiserver/internal/storage"
	"github.com/h2overflow/apiserver/internal/store"
	"github.com/h2overflow/apiserver/types"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]types.User
}

func (r *memUsers) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *memUsers) Patch(_ context.Context, id uuid.UUID, patch types.UserPatch) (types.PatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.PatchResult{}, store.ErrNotFound
	}
	if patch.Email != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *patch.Email {
				return types.PatchResult{}, store.ErrDuplicate
			}
		}
		user.Email = *patch.Email
	}
	for dst, src := range map[*string]*string{
		&user.Username:     patch.Username,
		&user.Name:         patch.Name,
		&user.LastNames:    patch.LastNames,
		&user.PasswordHash: patch.PasswordHash,
	} {
		if src != nil {
			*dst = *src
		}
	}
	previous := user.ProfilePicture
	if patch.ProfilePicture != nil {
		pic := *patch.ProfilePicture
		user.ProfilePicture = &pic
	}
	r.users[id] = user
	return types.PatchResult{User: user, PreviousPicture: previous}, nil
}

func (r *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type memActivities struct {
	mu      sync.Mutex
	records []types.ActivityRecord
}

func (r *memActivities) Create(_ context.Context, record types.ActivityRecord) (types.ActivityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.ID = int64(len(r.records) + 1)
	record.CreatedAt = time.Now()
	r.records = append(r.records, record)
	return record, nil
}

func (r *memActivities) ListForUserInRange(_ context.Context, userID uuid.UUID, start, end time.Time) ([]types.ActivityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ActivityRecord, 0)
	for _, record := range r.records {
		if record.UserID == userID && !record.OccurredOn.Before(start) && !record.OccurredOn.After(end) {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredOn.Before(out[j].OccurredOn)
	})
	return out, nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *memBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events []types.AccountEvent
}

func (e *memEvents) PublishAccountEvent(_ context.Context, event types.AccountEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}
