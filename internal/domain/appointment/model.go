package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusCheckedIn = "checked-in"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

// Statuses lists every appointment status.
var Statuses = []string{StatusScheduled, StatusCheckedIn, StatusCompleted, StatusCancelled, StatusNoShow}

// transitions maps a status to the statuses it may move to.
var transitions = map[string][]string{
	StatusScheduled: {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn: {StatusCompleted, StatusCancelled},
}

func validStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether an appointment may move from one status to
// another. Completed, cancelled and no-show are final.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// blocksSlot reports whether an appointment in status s occupies its slot.
func blocksSlot(s string) bool {
	return s == StatusScheduled || s == StatusCheckedIn
}

// Appointment is a booked visit between a patient and a doctor.
type Appointment struct {
	ID        uuid.UUID  `json:"id"`
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
	Reason    string     `json:"reason"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (a *Appointment) clone() *Appointment {
	c := *a
	if a.DoctorID != nil {
		d := *a.DoctorID
		c.DoctorID = &d
	}
	return &c
}

func (a *Appointment) overlaps(b *Appointment) bool {
	return a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime)
}

// Seed is the fixture form of an appointment; times are relative to load.
type Seed struct {
	PatientID uuid.UUID     `yaml:"patient_id"`
	DoctorID  uuid.UUID     `yaml:"doctor_id"`
	Reason    string        `yaml:"reason"`
	Status    string        `yaml:"status"`
	StartIn   time.Duration `yaml:"start_in"`
	Duration  time.Duration `yaml:"duration"`
}

// Appointment materializes the seed relative to now.
func (s Seed) Appointment(now time.Time) *Appointment {
	start := now.Add(s.StartIn).Truncate(time.Minute)
	a := &Appointment{
		PatientID: s.PatientID,
		Reason:    s.Reason,
		Status:    s.Status,
		StartTime: start,
		EndTime:   start.Add(s.Duration),
	}
	if s.DoctorID != uuid.Nil {
		d := s.DoctorID
		a.DoctorID = &d
	}
	return a
}

// ListFilter narrows an appointment list. Zero fields match everything.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    string
	From      *time.Time
	To        *time.Time
}

func (f ListFilter) matches(a *Appointment) bool {
	if f.PatientID != nil && a.PatientID != *f.PatientID {
		return false
	}
	if f.DoctorID != nil && (a.DoctorID == nil || *a.DoctorID != *f.DoctorID) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.From != nil && a.StartTime.Before(*f.From) {
		return false
	}
	if f.To != nil && !a.StartTime.Before(*f.To) {
		return false
	}
	return true
}

// StatusUpdate is the body of PATCH /appointments/:id/status.
type StatusUpdate struct {
	Status string `json:"status"`
}

// Page is one page of an appointment listing.
type Page struct {
	Items []*Appointment
	Total int
}

// Summary holds aggregate appointment counts.
type Summary struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	Today         int            `json:"today"`
	TodayByStatus map[string]int `json:"today_by_status"`
	Upcoming      int            `json:"upcoming"`
}
