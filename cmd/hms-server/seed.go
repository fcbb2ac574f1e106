package main

import (
	"time"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/inventory"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/referral"
	"github.com/hms/hms/internal/domain/settings"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/fixtures"
)

// seedData is the decoded fixture set.
type seedData struct {
	users        []*staff.User
	patients     []*patient.Patient
	appointments []*appointment.Appointment
	inventory    []*inventory.Item
	referrals    []*referral.Referral
	settings     settings.Settings
}

// loadSeed decodes every fixture. Appointment times are placed relative to
// now. With enabled false only the settings defaults are returned.
func loadSeed(enabled bool, now time.Time) (*seedData, error) {
	sd := &seedData{settings: settings.Defaults()}
	if !enabled {
		return sd, nil
	}

	if err := fixtures.Decode(fixtures.Users, &sd.users); err != nil {
		return nil, err
	}
	if err := fixtures.Decode(fixtures.Patients, &sd.patients); err != nil {
		return nil, err
	}
	var appts []appointment.Seed
	if err := fixtures.Decode(fixtures.Appointments, &appts); err != nil {
		return nil, err
	}
	for _, a := range appts {
		sd.appointments = append(sd.appointments, a.Appointment(now))
	}
	if err := fixtures.Decode(fixtures.Inventory, &sd.inventory); err != nil {
		return nil, err
	}
	if err := fixtures.Decode(fixtures.Referrals, &sd.referrals); err != nil {
		return nil, err
	}
	if err := fixtures.Decode(fixtures.Settings, &sd.settings); err != nil {
		return nil, err
	}
	return sd, nil
}
