package patient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/cache"
	"github.com/hms/hms/pkg/pagination"
)

// CachePrefix namespaces patient entries in the data cache.
const CachePrefix = "patients"

// invalidateOnWrite lists the key patterns dropped after any patient write.
var invalidateOnWrite = []string{CachePrefix + ":*", "dashboard:*", "reports:*"}

type Service struct {
	repo  Repository
	cache *cache.Cache[any]
	ttl   time.Duration
}

// NewService creates the patient service. data may be nil to disable
// caching; ttl <= 0 uses the cache default.
func NewService(repo Repository, data *cache.Cache[any], ttl time.Duration) *Service {
	return &Service{repo: repo, cache: data, ttl: ttl}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	normalize(p)
	if err := validate(p); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

// GetPatient returns a cached patient. Callers must not modify the result.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	key := cache.GenerateKey(CachePrefix, map[string]string{"id": id.String()})
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*Patient, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// Exists reports whether a patient with id is registered.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.GetPatient(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	normalize(p)
	if err := validate(p); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

func (s *Service) ListPatients(ctx context.Context, filter ListFilter, limit, offset int) (*Page, error) {
	page := pagination.Params{Limit: limit, Offset: offset}
	key := cache.GenerateKey(CachePrefix, cache.Merge(filter.params(), page.KeyParams()))
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*Page, error) {
		items, total, err := s.repo.List(ctx, filter, limit, offset)
		if err != nil {
			return nil, err
		}
		return &Page{Items: items, Total: total}, nil
	})
}

// Summary counts every patient by status and gender.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	all, total, err := s.repo.List(ctx, ListFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Total: total, ByStatus: map[string]int{}, ByGender: map[string]int{}}
	for _, p := range all {
		sum.ByStatus[p.Status]++
		sum.ByGender[p.Gender]++
	}
	return sum, nil
}

func normalize(p *Patient) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	if p.Gender == "" {
		p.Gender = "unknown"
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
}

func validate(p *Patient) error {
	if p.FirstName == "" {
		return apperr.Validation("first_name is required")
	}
	if p.LastName == "" {
		return apperr.Validation("last_name is required")
	}
	if !validGenders[p.Gender] {
		return apperr.Validation("gender must be one of male, female, other, unknown")
	}
	if p.Status != StatusActive && p.Status != StatusInactive {
		return apperr.Validation("status must be active or inactive")
	}
	if p.DateOfBirth != nil && p.DateOfBirth.After(time.Now()) {
		return apperr.Validation("date_of_birth cannot be in the future")
	}
	return nil
}
