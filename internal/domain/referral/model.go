package referral

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

var Statuses = []string{StatusPending, StatusAccepted, StatusRejected, StatusCompleted}

var transitions = map[string][]string{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusCompleted},
}

// CanTransition reports whether a referral may move between statuses.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	PriorityRoutine   = "routine"
	PriorityUrgent    = "urgent"
	PriorityEmergency = "emergency"
)

var priorities = []string{PriorityRoutine, PriorityUrgent, PriorityEmergency}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Referral sends a patient from a clinician to another department.
type Referral struct {
	ID           uuid.UUID  `json:"id" yaml:"id"`
	PatientID    uuid.UUID  `json:"patient_id" yaml:"patient_id"`
	ReferredBy   *uuid.UUID `json:"referred_by,omitempty" yaml:"referred_by"`
	ToDepartment string     `json:"to_department" yaml:"to_department"`
	Reason       string     `json:"reason" yaml:"reason"`
	Priority     string     `json:"priority" yaml:"priority"`
	Status       string     `json:"status" yaml:"status"`
	Notes        string     `json:"notes,omitempty" yaml:"notes"`
	CreatedAt    time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"-"`
}

func (r *Referral) clone() *Referral {
	c := *r
	if r.ReferredBy != nil {
		id := *r.ReferredBy
		c.ReferredBy = &id
	}
	return &c
}

// StatusUpdate is the body of PATCH /referrals/:id/status.
type StatusUpdate struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type ListFilter struct {
	PatientID    *uuid.UUID
	Status       string
	Priority     string
	ToDepartment string
}

func (f ListFilter) matches(r *Referral) bool {
	if f.PatientID != nil && r.PatientID != *f.PatientID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Priority != "" && r.Priority != f.Priority {
		return false
	}
	if f.ToDepartment != "" && r.ToDepartment != f.ToDepartment {
		return false
	}
	return true
}

type Page struct {
	Items []*Referral
	Total int
}

// Summary holds aggregate referral counts.
type Summary struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByPriority   map[string]int `json:"by_priority"`
	ByDepartment map[string]int `json:"by_department"`
	Pending      int            `json:"pending"`
}
