package settings

import "time"

// Settings holds hospital-wide configuration editable at runtime.
type Settings struct {
	HospitalName           string    `json:"hospital_name" yaml:"hospital_name"`
	Timezone               string    `json:"timezone" yaml:"timezone"`
	AppointmentSlotMinutes int       `json:"appointment_slot_minutes" yaml:"appointment_slot_minutes"`
	LowStockThreshold      int       `json:"low_stock_threshold" yaml:"low_stock_threshold"`
	UpdatedAt              time.Time `json:"updated_at" yaml:"-"`
	UpdatedBy              string    `json:"updated_by,omitempty" yaml:"-"`
}

// Defaults are used when no settings fixture is loaded.
func Defaults() Settings {
	return Settings{
		HospitalName:           "General Hospital",
		Timezone:               "UTC",
		AppointmentSlotMinutes: 15,
		LowStockThreshold:      10,
	}
}

// PublicInfo is the unauthenticated view of the settings.
type PublicInfo struct {
	HospitalName           string `json:"hospital_name"`
	Timezone               string `json:"timezone"`
	AppointmentSlotMinutes int    `json:"appointment_slot_minutes"`
	Version                string `json:"version"`
}

// RoleChange is the body of PUT /admin/users/:id/role.
type RoleChange struct {
	Role string `json:"role"`
}

// RoleInfo is one row of the role table.
type RoleInfo struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}
