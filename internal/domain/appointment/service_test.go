package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/cache"
)

// mockPatients is a map-backed PatientChecker.
type mockPatients map[uuid.UUID]bool

func (m mockPatients) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m[id], nil
}

var (
	patientID = uuid.MustParse("0b7e4a52-0000-4000-8000-000000000001")
	doctorID  = uuid.MustParse("6f1c2b1e-0000-4000-8000-000000000002")
	base      = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

func newTestService() (*Service, *cache.Cache[any]) {
	data := cache.New[any]()
	return NewService(NewRepoMem(), mockPatients{patientID: true}, data, time.Minute), data
}

func booking(start time.Time, d time.Duration) *Appointment {
	doc := doctorID
	return &Appointment{PatientID: patientID, DoctorID: &doc, Reason: "check-up", StartTime: start, EndTime: start.Add(d)}
}

func TestService_CreateAppointment(t *testing.T) {
	svc, _ := newTestService()
	a := booking(base, 30*time.Minute)

	if err := svc.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == uuid.Nil || a.Status != StatusScheduled {
		t.Errorf("expected id and scheduled status, got %+v", a)
	}
}

func TestService_CreateAppointment_Validation(t *testing.T) {
	svc, _ := newTestService()
	tests := []struct {
		name string
		a    *Appointment
	}{
		{"no patient", &Appointment{StartTime: base, EndTime: base.Add(time.Hour)}},
		{"unknown patient", &Appointment{PatientID: uuid.New(), StartTime: base, EndTime: base.Add(time.Hour)}},
		{"end before start", &Appointment{PatientID: patientID, StartTime: base, EndTime: base.Add(-time.Minute)}},
		{"end equals start", &Appointment{PatientID: patientID, StartTime: base, EndTime: base}},
		{"missing times", &Appointment{PatientID: patientID}},
		{"bad status", &Appointment{PatientID: patientID, StartTime: base, EndTime: base.Add(time.Hour), Status: "lost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreateAppointment(context.Background(), tt.a); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_DoubleBooking(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	first := booking(base, time.Hour)
	if err := svc.CreateAppointment(ctx, first); err != nil {
		t.Fatal(err)
	}

	if err := svc.CreateAppointment(ctx, booking(base.Add(30*time.Minute), time.Hour)); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected overlap conflict, got %v", err)
	}
	// Back-to-back is fine.
	if err := svc.CreateAppointment(ctx, booking(base.Add(time.Hour), time.Hour)); err != nil {
		t.Errorf("adjacent slot should be bookable: %v", err)
	}
	// A cancelled appointment frees its slot.
	if _, err := svc.UpdateStatus(ctx, first.ID, StatusCancelled); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateAppointment(ctx, booking(base, 30*time.Minute)); err != nil {
		t.Errorf("cancelled slot should be bookable: %v", err)
	}
}

func TestService_UpdateStatus_Transitions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a := booking(base, time.Hour)
	_ = svc.CreateAppointment(ctx, a)

	if _, err := svc.UpdateStatus(ctx, a.ID, StatusCompleted); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("scheduled -> completed should be rejected, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, a.ID, StatusCheckedIn); err != nil {
		t.Fatalf("scheduled -> checked-in: %v", err)
	}
	got, err := svc.UpdateStatus(ctx, a.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("checked-in -> completed: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if _, err := svc.UpdateStatus(ctx, a.ID, StatusCancelled); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("completed is final, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, a.ID, "teleported"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, uuid.New(), StatusCancelled); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_UpdateAppointment(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a := booking(base, time.Hour)
	_ = svc.CreateAppointment(ctx, a)

	moved := booking(base.Add(2*time.Hour), time.Hour)
	moved.ID = a.ID
	moved.Status = StatusCompleted // ignored
	if err := svc.UpdateAppointment(ctx, moved); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := svc.GetAppointment(ctx, a.ID)
	if !got.StartTime.Equal(base.Add(2*time.Hour)) || got.Status != StatusScheduled {
		t.Errorf("unexpected appointment after update %+v", got)
	}

	_, _ = svc.UpdateStatus(ctx, a.ID, StatusNoShow)
	if err := svc.UpdateAppointment(ctx, moved); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("closed appointment must not be editable, got %v", err)
	}
}

func TestService_ListAppointments_CacheAndInvalidate(t *testing.T) {
	svc, data := newTestService()
	ctx := context.Background()
	_ = svc.CreateAppointment(ctx, booking(base, time.Hour))

	from, to := DayBounds(base)
	f := ListFilter{From: &from, To: &to}
	page, err := svc.ListAppointments(ctx, f, 10, 0)
	if err != nil || page.Total != 1 {
		t.Fatalf("expected 1 appointment, got %v %+v", err, page)
	}
	if len(data.Keys()) != 1 {
		t.Fatalf("expected the page to be cached, keys %v", data.Keys())
	}

	_ = svc.CreateAppointment(ctx, booking(base.Add(3*time.Hour), time.Hour))
	page, _ = svc.ListAppointments(ctx, f, 10, 0)
	if page.Total != 2 {
		t.Errorf("expected fresh listing after write, got %d", page.Total)
	}

	next := base.AddDate(0, 0, 1)
	from, to = DayBounds(next)
	page, _ = svc.ListAppointments(ctx, ListFilter{From: &from, To: &to}, 10, 0)
	if page.Total != 0 {
		t.Errorf("expected no appointments tomorrow, got %d", page.Total)
	}
}

func TestService_Summary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_ = svc.CreateAppointment(ctx, booking(base, time.Hour))
	_ = svc.CreateAppointment(ctx, booking(base.Add(2*time.Hour), time.Hour))
	_ = svc.CreateAppointment(ctx, booking(base.AddDate(0, 0, 1), time.Hour))

	sum, err := svc.Summary(ctx, base.Add(-time.Hour), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 3 || sum.Today != 2 || sum.TodayByStatus[StatusScheduled] != 2 || sum.Upcoming != 3 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusScheduled, StatusNoShow) {
		t.Error("scheduled -> no-show should be allowed")
	}
	for _, final := range []string{StatusCompleted, StatusCancelled, StatusNoShow} {
		for _, to := range Statuses {
			if CanTransition(final, to) {
				t.Errorf("%s is final but allows %s", final, to)
			}
		}
	}
}

func TestSeed_Appointment(t *testing.T) {
	s := Seed{PatientID: patientID, DoctorID: doctorID, Status: StatusScheduled, StartIn: time.Hour, Duration: 30 * time.Minute}
	a := s.Appointment(base.Add(17 * time.Second))
	if !a.StartTime.Equal(base.Add(time.Hour)) || !a.EndTime.Equal(base.Add(90*time.Minute)) {
		t.Errorf("unexpected times %s - %s", a.StartTime, a.EndTime)
	}
	if a.DoctorID == nil || *a.DoctorID != doctorID {
		t.Error("expected doctor to be set")
	}
}
