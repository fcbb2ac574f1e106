package appointment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/cache"
	"github.com/hms/hms/pkg/pagination"
)

// CachePrefix namespaces appointment entries in the data cache.
const CachePrefix = "appointments"

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

	// booking serializes the overlap check with the write that follows it.
	booking sync.Mutex
}

func NewService(repo Repository, patients PatientChecker, data *cache.Cache[any], ttl time.Duration) *Service {
	return &Service{repo: repo, patients: patients, cache: data, ttl: ttl}
}

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if err := s.validate(ctx, a); err != nil {
		return err
	}

	s.booking.Lock()
	defer s.booking.Unlock()
	if err := s.checkDoctorFree(ctx, a); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

// GetAppointment returns a cached appointment. Callers must not modify it.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	key := cache.GenerateKey(CachePrefix, map[string]string{"id": id.String()})
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*Appointment, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// UpdateAppointment replaces the editable fields of an open appointment.
// Status changes go through UpdateStatus.
func (s *Service) UpdateAppointment(ctx context.Context, a *Appointment) error {
	s.booking.Lock()
	defer s.booking.Unlock()

	existing, err := s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if !blocksSlot(existing.Status) {
		return apperr.Conflict("appointment is %s and can no longer be changed", existing.Status)
	}
	a.Status = existing.Status
	if err := s.validate(ctx, a); err != nil {
		return err
	}
	if err := s.checkDoctorFree(ctx, a); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

// UpdateStatus moves an appointment along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	if !validStatus(status) {
		return nil, apperr.Validation("status must be one of %s", strings.Join(Statuses, ", "))
	}

	s.booking.Lock()
	defer s.booking.Unlock()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == status {
		return a, nil
	}
	if !CanTransition(a.Status, status) {
		return nil, apperr.Conflict("cannot move appointment from %s to %s", a.Status, status)
	}
	a.Status = status
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return a, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

func (s *Service) ListAppointments(ctx context.Context, filter ListFilter, limit, offset int) (*Page, error) {
	key := cache.GenerateKey(CachePrefix, filterParams(filter, limit, offset))
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*Page, error) {
		items, total, err := s.repo.List(ctx, filter, limit, offset)
		if err != nil {
			return nil, err
		}
		return &Page{Items: items, Total: total}, nil
	})
}

// Summary counts appointments overall and for the day containing now in loc.
func (s *Service) Summary(ctx context.Context, now time.Time, loc *time.Location) (*Summary, error) {
	all, total, err := s.repo.List(ctx, ListFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	dayStart, dayEnd := DayBounds(now.In(loc))

	sum := &Summary{Total: total, ByStatus: map[string]int{}, TodayByStatus: map[string]int{}}
	for _, a := range all {
		sum.ByStatus[a.Status]++
		if !a.StartTime.Before(dayStart) && a.StartTime.Before(dayEnd) {
			sum.Today++
			sum.TodayByStatus[a.Status]++
		}
		if a.StartTime.After(now) && blocksSlot(a.Status) {
			sum.Upcoming++
		}
	}
	return sum, nil
}

// DayBounds returns midnight at the start of t's day and the following
// midnight, in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

func (s *Service) validate(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if a.StartTime.IsZero() || a.EndTime.IsZero() {
		return apperr.Validation("start_time and end_time are required")
	}
	if !a.EndTime.After(a.StartTime) {
		return apperr.Validation("end_time must be after start_time")
	}
	if !validStatus(a.Status) {
		return apperr.Validation("status must be one of %s", strings.Join(Statuses, ", "))
	}
	ok, err := s.patients.Exists(ctx, a.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("patient %s does not exist", a.PatientID)
	}
	return nil
}

// checkDoctorFree rejects a booking that overlaps another open appointment
// of the same doctor. Callers hold s.booking.
func (s *Service) checkDoctorFree(ctx context.Context, a *Appointment) error {
	if a.DoctorID == nil || !blocksSlot(a.Status) {
		return nil
	}
	others, _, err := s.repo.List(ctx, ListFilter{DoctorID: a.DoctorID}, 0, 0)
	if err != nil {
		return err
	}
	for _, o := range others {
		if o.ID != a.ID && blocksSlot(o.Status) && o.overlaps(a) {
			return apperr.Conflict("doctor already has appointment %s at %s", o.ID, o.StartTime.Format(time.RFC3339))
		}
	}
	return nil
}

func filterParams(f ListFilter, limit, offset int) map[string]string {
	params := pagination.Params{Limit: limit, Offset: offset}.KeyParams()
	params["status"] = f.Status
	if f.PatientID != nil {
		params["patient_id"] = f.PatientID.String()
	}
	if f.DoctorID != nil {
		params["doctor_id"] = f.DoctorID.String()
	}
	if f.From != nil {
		params["from"] = f.From.UTC().Format(time.RFC3339)
	}
	if f.To != nil {
		params["to"] = f.To.UTC().Format(time.RFC3339)
	}
	return params
}
