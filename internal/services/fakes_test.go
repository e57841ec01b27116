package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/h2overflow/apiserver/internal/store"
	"github.com/h2overflow/apiserver/types"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]types.User)}
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) Patch(_ context.Context, id uuid.UUID, patch types.UserPatch) (types.PatchResult, error) {
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
	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.LastNames != nil {
		user.LastNames = *patch.LastNames
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	previous := user.ProfilePicture
	if patch.ProfilePicture != nil {
		pic := *patch.ProfilePicture
		user.ProfilePicture = &pic
	}
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return types.PatchResult{User: user, PreviousPicture: previous}, nil
}

func (r *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type memActivityRepo struct {
	mu      sync.Mutex
	nextID  int64
	records []types.ActivityRecord
	err     error
}

func (r *memActivityRepo) Create(_ context.Context, record types.ActivityRecord) (types.ActivityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.ActivityRecord{}, r.err
	}
	r.nextID++
	record.ID = r.nextID
	record.OccurredOn = types.CalendarDate(record.OccurredOn)
	record.CreatedAt = time.Now()
	r.records = append(r.records, record)
	return record, nil
}

func (r *memActivityRepo) ListForUserInRange(_ context.Context, userID uuid.UUID, start, end time.Time) ([]types.ActivityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]types.ActivityRecord, 0)
	for _, record := range r.records {
		if record.UserID != userID || record.OccurredOn.Before(start) || record.OccurredOn.After(end) {
			continue
		}
		out = append(out, record)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredOn.Equal(out[j].OccurredOn) {
			return out[i].ID < out[j].ID
		}
		return out[i].OccurredOn.Before(out[j].OccurredOn)
	})
	return out, nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if b.putErr != nil {
		return b.putErr
	}
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
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.AccountEvent
}

func (p *recordingPublisher) PublishAccountEvent(_ context.Context, event types.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
