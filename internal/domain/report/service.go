package report

import (
	"context"
	"time"

	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/cache"
)

const dateLayout = "2006-01-02"

// LocationFunc returns the hospital's configured time zone.
type LocationFunc func() *time.Location

type Service struct {
	src      Sources
	cache    *cache.Cache[any]
	ttl      time.Duration
	location LocationFunc
	now      func() time.Time
}

// NewService creates the report service. location may be nil for UTC.
func NewService(src Sources, data *cache.Cache[any], ttl time.Duration, location LocationFunc) *Service {
	if location == nil {
		location = func() *time.Location { return time.UTC }
	}
	return &Service{src: src, cache: data, ttl: ttl, location: location, now: time.Now}
}

// Dashboard returns headline counts for today, cached per day and time zone.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	loc := s.location()
	now := s.now().In(loc)
	day := now.Format(dateLayout)

	key := cache.GenerateKey(DashboardPrefix, map[string]string{"day": day, "tz": loc.String()})
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*DashboardStats, error) {
		patients, err := s.src.Patients.Summary(ctx)
		if err != nil {
			return nil, err
		}
		appts, err := s.src.Appointments.Summary(ctx, now, loc)
		if err != nil {
			return nil, err
		}
		stock, err := s.src.Inventory.Summary(ctx)
		if err != nil {
			return nil, err
		}
		refs, err := s.src.Referrals.Summary(ctx)
		if err != nil {
			return nil, err
		}
		return &DashboardStats{
			Date:                      day,
			TotalPatients:             patients.Total,
			ActivePatients:            patients.ByStatus[patient.StatusActive],
			AppointmentsToday:         appts.Today,
			AppointmentsTodayByStatus: appts.TodayByStatus,
			UpcomingAppointments:      appts.Upcoming,
			LowStockItems:             stock.LowStock,
			OutOfStockItems:           stock.OutOfStock,
			PendingReferrals:          refs.Pending,
			GeneratedAt:               s.now().UTC(),
		}, nil
	})
}

// Generate builds the report of the given kind, cached per kind and params.
func (s *Service) Generate(ctx context.Context, kind string, params map[string]string) (*Report, error) {
	def := FindDefinition(kind)
	if def == nil {
		return nil, apperr.NotFound("report " + kind)
	}
	params = keep(params, def.Parameters)

	key := cache.GenerateKey(ReportsPrefix, cache.Merge(params, map[string]string{"kind": kind}))
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*Report, error) {
		data, err := s.generate(ctx, kind, params)
		if err != nil {
			return nil, err
		}
		return &Report{
			Kind:        kind,
			Name:        def.Name,
			GeneratedAt: s.now().UTC(),
			Parameters:  params,
			Data:        data,
		}, nil
	})
}

func (s *Service) generate(ctx context.Context, kind string, params map[string]string) (interface{}, error) {
	switch kind {
	case KindPatients:
		return s.src.Patients.Summary(ctx)
	case KindAppointments:
		loc := s.location()
		at := s.now().In(loc)
		if v := params["date"]; v != "" {
			day, err := time.ParseInLocation(dateLayout, v, loc)
			if err != nil {
				return nil, apperr.Validation("date must be YYYY-MM-DD")
			}
			at = day
		}
		return s.src.Appointments.Summary(ctx, at, loc)
	case KindInventory:
		sum, err := s.src.Inventory.Summary(ctx)
		if err != nil {
			return nil, err
		}
		low, err := s.src.Inventory.LowStock(ctx)
		if err != nil {
			return nil, err
		}
		return &InventoryReport{Summary: sum, LowStock: low}, nil
	case KindReferrals:
		return s.src.Referrals.Summary(ctx)
	}
	return nil, apperr.NotFound("report " + kind)
}

// keep drops params the report does not declare, so unrelated query
// values do not fragment the cache.
func keep(params map[string]string, allowed []string) map[string]string {
	out := make(map[string]string, len(allowed))
	for _, name := range allowed {
		if v, ok := params[name]; ok && v != "" {
			out[name] = v
		}
	}
	return out
}
