package appointment

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
	mu    sync.RWMutex
	appts map[uuid.UUID]*Appointment
}

// NewRepoMem returns an in-memory Repository seeded with appointments.
func NewRepoMem(seed ...*Appointment) Repository {
	r := &repoMem{appts: make(map[uuid.UUID]*Appointment)}
	for _, a := range seed {
		_ = r.Create(context.Background(), a.clone())
	}
	return r
}

func (r *repoMem) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.appts[a.ID] = a.clone()
	return nil
}

func (r *repoMem) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, apperr.NotFound("appointment")
	}
	return a.clone(), nil
}

func (r *repoMem) Update(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.appts[a.ID]
	if !ok {
		return apperr.NotFound("appointment")
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	r.appts[a.ID] = a.clone()
	return nil
}

func (r *repoMem) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appts[id]; !ok {
		return apperr.NotFound("appointment")
	}
	delete(r.appts, id)
	return nil
}

func (r *repoMem) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	r.mu.RLock()
	var matched []*Appointment
	for _, a := range r.appts {
		if filter.matches(a) {
			matched = append(matched, a.clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartTime.Equal(matched[j].StartTime) {
			return matched[i].StartTime.Before(matched[j].StartTime)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return pagination.Apply(matched, pagination.Params{Limit: limit, Offset: offset}), len(matched), nil
}
