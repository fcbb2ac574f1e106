package referral

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/pkg/pagination"
)

type repoMem struct {
	mu        sync.RWMutex
	referrals map[uuid.UUID]*Referral
}

// NewRepoMem returns an in-memory Repository seeded with referrals.
func NewRepoMem(seed ...*Referral) Repository {
	r := &repoMem{referrals: make(map[uuid.UUID]*Referral)}
	for _, ref := range seed {
		_ = r.Create(context.Background(), ref.clone())
	}
	return r
}

func (r *repoMem) Create(_ context.Context, ref *Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	if _, exists := r.referrals[ref.ID]; exists {
		return apperr.Conflict("referral %s already exists", ref.ID)
	}
	now := time.Now().UTC()
	ref.CreatedAt, ref.UpdatedAt = now, now
	r.referrals[ref.ID] = ref.clone()
	return nil
}

func (r *repoMem) GetByID(_ context.Context, id uuid.UUID) (*Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.referrals[id]
	if !ok {
		return nil, apperr.NotFound("referral")
	}
	return ref.clone(), nil
}

func (r *repoMem) Update(_ context.Context, ref *Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.referrals[ref.ID]
	if !ok {
		return apperr.NotFound("referral")
	}
	ref.CreatedAt = existing.CreatedAt
	ref.UpdatedAt = time.Now().UTC()
	r.referrals[ref.ID] = ref.clone()
	return nil
}

func (r *repoMem) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.referrals[id]; !ok {
		return apperr.NotFound("referral")
	}
	delete(r.referrals, id)
	return nil
}

// List returns matches newest first.
func (r *repoMem) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Referral, int, error) {
	r.mu.RLock()
	var matched []*Referral
	for _, ref := range r.referrals {
		if filter.matches(ref) {
			matched = append(matched, ref.clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return pagination.Apply(matched, pagination.Params{Limit: limit, Offset: offset}), len(matched), nil
}
