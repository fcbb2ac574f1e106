package staff

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
)

type userRepoMem struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*User
}

// NewUserRepoMem returns an in-memory UserRepository seeded with users.
func NewUserRepoMem(seed ...*User) UserRepository {
	r := &userRepoMem{users: make(map[uuid.UUID]*User)}
	for _, u := range seed {
		_ = r.Create(context.Background(), u.clone())
	}
	return r
}

func (r *userRepoMem) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return apperr.Conflict("username %q is taken", u.Username)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = u.clone()
	return nil
}

func (r *userRepoMem) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return u.clone(), nil
}

func (r *userRepoMem) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return u.clone(), nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (r *userRepoMem) Update(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok {
		return apperr.NotFound("user")
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	r.users[u.ID] = u.clone()
	return nil
}

func (r *userRepoMem) List(_ context.Context) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
