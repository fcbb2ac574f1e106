package referral

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/cache"
	"github.com/hms/hms/pkg/pagination"
)

// CachePrefix namespaces referral entries in the data cache.
const CachePrefix = "referrals"

var invalidateOnWrite = []string{CachePrefix + ":*", "dashboard:*", "reports:*"}

// PatientChecker confirms a patient is registered.
type PatientChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo     Repository
	patients PatientChecker
	cache    *cache.Cache[any]
	ttl      time.Duration
}

func NewService(repo Repository, patients PatientChecker, data *cache.Cache[any], ttl time.Duration) *Service {
	return &Service{repo: repo, patients: patients, cache: data, ttl: ttl}
}

// CreateReferral files a new referral. New referrals always start pending.
func (s *Service) CreateReferral(ctx context.Context, ref *Referral) error {
	if ref.Status != "" && ref.Status != StatusPending {
		return apperr.Validation("new referrals must be %s", StatusPending)
	}
	ref.Status = StatusPending
	if ref.Priority == "" {
		ref.Priority = PriorityRoutine
	}
	if err := s.validate(ctx, ref); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, ref); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

// GetReferral returns a cached referral. Callers must not modify it.
func (s *Service) GetReferral(ctx context.Context, id uuid.UUID) (*Referral, error) {
	key := cache.GenerateKey(CachePrefix, map[string]string{"id": id.String()})
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*Referral, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// UpdateReferral edits a pending referral. Status is left unchanged.
func (s *Service) UpdateReferral(ctx context.Context, ref *Referral) error {
	existing, err := s.repo.GetByID(ctx, ref.ID)
	if err != nil {
		return err
	}
	if existing.Status != StatusPending {
		return apperr.Conflict("referral is %s and can no longer be edited", existing.Status)
	}
	ref.Status = existing.Status
	if ref.Priority == "" {
		ref.Priority = existing.Priority
	}
	if ref.ReferredBy == nil {
		ref.ReferredBy = existing.ReferredBy
	}
	if err := s.validate(ctx, ref); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, ref); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

// UpdateStatus moves a referral along pending → accepted|rejected and
// accepted → completed. Non-empty notes replace the existing ones.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (*Referral, error) {
	if !contains(Statuses, upd.Status) {
		return nil, apperr.Validation("status must be one of %s", strings.Join(Statuses, ", "))
	}
	ref, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(ref.Status, upd.Status) {
		return nil, apperr.Conflict("cannot move referral from %s to %s", ref.Status, upd.Status)
	}
	ref.Status = upd.Status
	if upd.Notes != "" {
		ref.Notes = upd.Notes
	}
	if err := s.repo.Update(ctx, ref); err != nil {
		return nil, err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return ref, nil
}

func (s *Service) DeleteReferral(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

func (s *Service) ListReferrals(ctx context.Context, filter ListFilter, limit, offset int) (*Page, error) {
	params := map[string]string{
		"status":        filter.Status,
		"priority":      filter.Priority,
		"to_department": filter.ToDepartment,
	}
	if filter.PatientID != nil {
		params["patient_id"] = filter.PatientID.String()
	}
	page := pagination.Params{Limit: limit, Offset: offset}
	key := cache.GenerateKey(CachePrefix, cache.Merge(params, page.KeyParams()))
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*Page, error) {
		items, total, err := s.repo.List(ctx, filter, limit, offset)
		if err != nil {
			return nil, err
		}
		return &Page{Items: items, Total: total}, nil
	})
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	all, total, err := s.repo.List(ctx, ListFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		Total:        total,
		ByStatus:     map[string]int{},
		ByPriority:   map[string]int{},
		ByDepartment: map[string]int{},
	}
	for _, r := range all {
		sum.ByStatus[r.Status]++
		sum.ByPriority[r.Priority]++
		sum.ByDepartment[r.ToDepartment]++
		if r.Status == StatusPending {
			sum.Pending++
		}
	}
	return sum, nil
}

func (s *Service) validate(ctx context.Context, ref *Referral) error {
	ref.ToDepartment = strings.ToLower(strings.TrimSpace(ref.ToDepartment))
	ref.Reason = strings.TrimSpace(ref.Reason)

	if ref.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if ref.ToDepartment == "" {
		return apperr.Validation("to_department is required")
	}
	if ref.Reason == "" {
		return apperr.Validation("reason is required")
	}
	if !contains(priorities, ref.Priority) {
		return apperr.Validation("priority must be one of %s", strings.Join(priorities, ", "))
	}
	ok, err := s.patients.Exists(ctx, ref.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("patient %s does not exist", ref.PatientID)
	}
	return nil
}
