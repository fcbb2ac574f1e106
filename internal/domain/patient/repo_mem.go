package patient

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/pkg/pagination"
)

type repoMem struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*Patient
	nextMRN  int
}

// NewRepoMem returns an in-memory Repository seeded with patients.
func NewRepoMem(seed ...*Patient) Repository {
	r := &repoMem{patients: make(map[uuid.UUID]*Patient)}
	for _, p := range seed {
		_ = r.Create(context.Background(), p.clone())
	}
	return r
}

func (r *repoMem) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, exists := r.patients[p.ID]; exists {
		return apperr.Conflict("patient %s already exists", p.ID)
	}
	if p.MRN == "" {
		for p.MRN == "" || r.mrnTaken(p.MRN) {
			r.nextMRN++
			p.MRN = fmt.Sprintf("MRN-%06d", r.nextMRN)
		}
	} else if r.mrnTaken(p.MRN) {
		return apperr.Conflict("mrn %s is already assigned", p.MRN)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.patients[p.ID] = p.clone()
	return nil
}

func (r *repoMem) mrnTaken(mrn string) bool {
	for _, existing := range r.patients {
		if existing.MRN == mrn {
			return true
		}
	}
	return false
}

func (r *repoMem) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient")
	}
	return p.clone(), nil
}

func (r *repoMem) Update(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.patients[p.ID]
	if !ok {
		return apperr.NotFound("patient")
	}
	p.MRN = existing.MRN
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.patients[p.ID] = p.clone()
	return nil
}

func (r *repoMem) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[id]; !ok {
		return apperr.NotFound("patient")
	}
	delete(r.patients, id)
	return nil
}

func (r *repoMem) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	r.mu.RLock()
	var matched []*Patient
	for _, p := range r.patients {
		if p.matches(filter) {
			matched = append(matched, p.clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].MRN < matched[j].MRN
	})
	return pagination.Apply(matched, pagination.Params{Limit: limit, Offset: offset}), len(matched), nil
}
