package report

import (
	"context"
	"time"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/inventory"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/referral"
)

const (
	DashboardPrefix = "dashboard"
	ReportsPrefix   = "reports"
)

const (
	KindPatients     = "patients"
	KindAppointments = "appointments"
	KindInventory    = "inventory"
	KindReferrals    = "referrals"
)

// Definition describes a report that can be generated.
type Definition struct {
	Kind        string   `json:"kind"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
}

// Definitions is the catalog of available reports.
var Definitions = []Definition{
	{
		Kind:        KindPatients,
		Name:        "Patient Census",
		Description: "Registered patients by status and gender",
		Parameters:  []string{},
	},
	{
		Kind:        KindAppointments,
		Name:        "Appointment Activity",
		Description: "Appointments by status, overall and for one day",
		Parameters:  []string{"date"},
	},
	{
		Kind:        KindInventory,
		Name:        "Stock Levels",
		Description: "Stock by category with the items due for reorder",
		Parameters:  []string{},
	},
	{
		Kind:        KindReferrals,
		Name:        "Referral Pipeline",
		Description: "Referrals by status, priority and department",
		Parameters:  []string{},
	},
}

// FindDefinition returns the definition for kind, or nil.
func FindDefinition(kind string) *Definition {
	for i := range Definitions {
		if Definitions[i].Kind == kind {
			return &Definitions[i]
		}
	}
	return nil
}

// Report is a generated summary.
type Report struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	GeneratedAt time.Time         `json:"generated_at"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Data        interface{}       `json:"data"`
}

// InventoryReport is the data of the inventory report.
type InventoryReport struct {
	Summary  *inventory.Summary `json:"summary"`
	LowStock []*inventory.Item  `json:"low_stock"`
}

// DashboardStats is the landing page overview.
type DashboardStats struct {
	Date                      string         `json:"date"`
	TotalPatients             int            `json:"total_patients"`
	ActivePatients            int            `json:"active_patients"`
	AppointmentsToday         int            `json:"appointments_today"`
	AppointmentsTodayByStatus map[string]int `json:"appointments_today_by_status"`
	UpcomingAppointments      int            `json:"upcoming_appointments"`
	LowStockItems             int            `json:"low_stock_items"`
	OutOfStockItems           int            `json:"out_of_stock_items"`
	PendingReferrals          int            `json:"pending_referrals"`
	GeneratedAt               time.Time      `json:"generated_at"`
}

// PatientSource summarizes patients.
type PatientSource interface {
	Summary(ctx context.Context) (*patient.Summary, error)
}

// AppointmentSource summarizes appointments around a point in time.
type AppointmentSource interface {
	Summary(ctx context.Context, now time.Time, loc *time.Location) (*appointment.Summary, error)
}

// InventorySource summarizes stock.
type InventorySource interface {
	Summary(ctx context.Context) (*inventory.Summary, error)
	LowStock(ctx context.Context) ([]*inventory.Item, error)
}

// ReferralSource summarizes referrals.
type ReferralSource interface {
	Summary(ctx context.Context) (*referral.Summary, error)
}

// Sources bundles the domain services reports read from.
type Sources struct {
	Patients     PatientSource
	Appointments AppointmentSource
	Inventory    InventorySource
	Referrals    ReferralSource
}
