package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var validGenders = map[string]bool{"male": true, "female": true, "other": true, "unknown": true}

// Patient is a registered patient.
type Patient struct {
	ID          uuid.UUID  `json:"id" yaml:"id"`
	MRN         string     `json:"mrn" yaml:"mrn"`
	FirstName   string     `json:"first_name" yaml:"first_name"`
	LastName    string     `json:"last_name" yaml:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" yaml:"date_of_birth"`
	Gender      string     `json:"gender" yaml:"gender"`
	Phone       string     `json:"phone,omitempty" yaml:"phone"`
	Email       string     `json:"email,omitempty" yaml:"email"`
	Address     string     `json:"address,omitempty" yaml:"address"`
	Status      string     `json:"status" yaml:"status"`
	CreatedAt   time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"-"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) clone() *Patient {
	c := *p
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		c.DateOfBirth = &dob
	}
	return &c
}

// matches reports whether p satisfies every non-empty filter field.
func (p *Patient) matches(f ListFilter) bool {
	if f.Gender != "" && p.Gender != f.Gender {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		hay := strings.ToLower(p.FullName() + " " + p.MRN + " " + p.Phone + " " + p.Email)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

// ListFilter narrows a patient list. Empty fields match everything.
type ListFilter struct {
	Query  string
	Gender string
	Status string
}

func (f ListFilter) params() map[string]string {
	return map[string]string{"q": f.Query, "gender": f.Gender, "status": f.Status}
}

// Page is one page of a patient listing.
type Page struct {
	Items []*Patient
	Total int
}

// Summary holds aggregate patient counts.
type Summary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByGender map[string]int `json:"by_gender"`
}
