package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jjinnspecs/authhub/internal/domain/user"
)

// UsersRepo is an in-memory credential store with the same uniqueness
// semantics as the Postgres one. Used by flow tests and local hacking.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // keyed by id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Create(ctx context.Context, req user.CreateRequest) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Username == req.Username || existing.Email == req.Email || existing.PhoneNumber == req.PhoneNumber {
			return user.User{}, user.ErrDuplicate
		}
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: req.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// lowest id wins, mirroring the store's ORDER BY id pick
	var found *user.User

	for _, u := range r.items {
		if u.Username == identifier || u.Email == identifier || u.PhoneNumber == identifier {
			if found == nil || u.ID < found.ID {
				copied := u
				found = &copied
			}
		}
	}

	if found == nil {
		return user.User{}, user.ErrNotFound
	}

	return *found, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

// Delete removes a record; lets tests exercise the stale-token path
// where a valid token outlives its user.
func (r *UsersRepo) Delete(id string) {
	r.mu.Lock()
	delete(r.items, id)
	r.mu.Unlock()
}

// Len reports the number of stored records.
func (r *UsersRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
