package settings

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/cache"
)

// invalidateOnWrite lists the cached views derived from settings: the
// dashboard and reports depend on the time zone, and low-stock listings on
// the threshold.
var invalidateOnWrite = []string{"dashboard:*", "reports:*", "inventory:*"}

// Service holds the current settings in memory.
type Service struct {
	mu      sync.RWMutex
	current Settings
	loc     *time.Location

	cache  *cache.Cache[any]
	logger zerolog.Logger
	now    func() time.Time
}

// NewService validates initial and returns a service serving it.
func NewService(initial Settings, data *cache.Cache[any], logger zerolog.Logger) (*Service, error) {
	s := &Service{cache: data, logger: logger, now: time.Now}
	loc, err := validate(&initial)
	if err != nil {
		return nil, err
	}
	s.current, s.loc = initial, loc
	return s, nil
}

// Get returns a copy of the current settings.
func (s *Service) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update replaces the settings after validation.
func (s *Service) Update(next Settings, by string) (Settings, error) {
	loc, err := validate(&next)
	if err != nil {
		return Settings{}, err
	}
	next.UpdatedAt = s.now().UTC()
	next.UpdatedBy = by

	s.mu.Lock()
	prev := s.current
	s.current, s.loc = next, loc
	s.mu.Unlock()

	s.cache.InvalidatePatterns(invalidateOnWrite...)
	s.logger.Info().
		Str("updated_by", by).
		Str("timezone", next.Timezone).
		Int("low_stock_threshold", next.LowStockThreshold).
		Bool("timezone_changed", prev.Timezone != next.Timezone).
		Msg("settings updated")
	return next, nil
}

// Location returns the configured time zone.
func (s *Service) Location() *time.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc
}

// LowStockThreshold returns the hospital-wide reorder threshold.
func (s *Service) LowStockThreshold() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.LowStockThreshold
}

func validate(st *Settings) (*time.Location, error) {
	st.HospitalName = strings.TrimSpace(st.HospitalName)
	st.Timezone = strings.TrimSpace(st.Timezone)
	if st.HospitalName == "" {
		return nil, apperr.Validation("hospital_name is required")
	}
	if st.Timezone == "" {
		st.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(st.Timezone)
	if err != nil {
		return nil, apperr.Validation("unknown timezone %q", st.Timezone)
	}
	if st.AppointmentSlotMinutes < 5 || st.AppointmentSlotMinutes > 240 {
		return nil, apperr.Validation("appointment_slot_minutes must be between 5 and 240")
	}
	if st.LowStockThreshold < 0 {
		return nil, apperr.Validation("low_stock_threshold must not be negative")
	}
	return loc, nil
}
