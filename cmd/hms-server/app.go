package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/inventory"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/referral"
	"github.com/hms/hms/internal/domain/report"
	"github.com/hms/hms/internal/domain/settings"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/cache"
	"github.com/hms/hms/internal/platform/middleware"
)

const version = "0.1.0"

// app holds the wired server and the caches whose sweepers it owns.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	echo   *echo.Echo

	data      *cache.Cache[any]
	responses *cache.Cache[[]byte]
	revoked   *cache.Cache[string]
	limiter   *middleware.RateLimiter

	issuer *auth.TokenIssuer
	staff  *staff.Service
}

func newApp(cfg *config.Config, logger zerolog.Logger, sd *seedData) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// Caches
	a.data = cache.New[any](
		cache.WithDefaultTTL(cfg.CacheDefaultTTL),
		cache.WithLogger(logger.With().Str("cache", "data").Logger()),
	)
	a.responses = cache.New[[]byte](
		cache.WithDefaultTTL(cfg.ResponseCacheTTL),
		cache.WithLogger(logger.With().Str("cache", "response").Logger()),
	)
	a.revoked = cache.New[string](
		cache.WithLogger(logger.With().Str("cache", "revoked").Logger()),
	)

	// Auth
	revocations := auth.NewTokenRevocationStore(a.revoked)
	a.issuer = auth.NewTokenIssuer(auth.TokenConfig{
		SigningKey: []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, revocations, logger)
	a.staff = staff.NewService(staff.NewUserRepoMem(sd.users...), a.issuer, logger)

	// Domain services
	settingsSvc, err := settings.NewService(sd.settings, a.data, logger)
	if err != nil {
		return nil, err
	}
	ttl := cfg.CacheDefaultTTL
	patientSvc := patient.NewService(patient.NewRepoMem(sd.patients...), a.data, ttl)
	appointmentSvc := appointment.NewService(appointment.NewRepoMem(sd.appointments...), patientSvc, a.data, ttl)
	inventorySvc := inventory.NewService(inventory.NewRepoMem(sd.inventory...), a.data, ttl, settingsSvc.LowStockThreshold, logger)
	referralSvc := referral.NewService(referral.NewRepoMem(sd.referrals...), patientSvc, a.data, ttl)
	reportSvc := report.NewService(report.Sources{
		Patients:     patientSvc,
		Appointments: appointmentSvc,
		Inventory:    inventorySvc,
		Referrals:    referralSvc,
	}, a.data, ttl, settingsSvc.Location)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "If-None-Match"},
	}))

	// Auth middleware
	e.Use(auth.Authenticate(auth.AuthenticateConfig{
		Issuer:  a.issuer,
		DevMode: cfg.IsDev(),
		Skipper: auth.AuthSkipper,
	}))

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// Public, cacheable responses
	cacheCfg := middleware.DefaultCacheConfig()
	cacheCfg.MaxAge = int(cfg.ResponseCacheTTL.Seconds())
	publicCache := []echo.MiddlewareFunc{
		middleware.ETagMiddleware(cacheCfg),
		middleware.ResponseCacheMiddleware(a.responses, cfg.ResponseCacheTTL),
	}

	e.GET("/health", a.health, publicCache...)

	// API groups
	apiV1 := e.Group("/api/v1")
	a.limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})
	apiV1.Use(a.limiter.Middleware())
	public := apiV1.Group("/public", publicCache...)

	staff.NewHandler(a.staff).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(apiV1)
	inventory.NewHandler(inventorySvc).RegisterRoutes(apiV1)
	referral.NewHandler(referralSvc).RegisterRoutes(apiV1)
	report.NewHandler(reportSvc).RegisterRoutes(apiV1)
	settings.NewHandler(settingsSvc, a.staff, map[string]settings.ManagedCache{
		"data":     a.data,
		"response": a.responses,
		"revoked":  a.revoked,
	}, version).RegisterRoutes(apiV1, public)
	auth.RegisterRevocationRoutes(apiV1, revocations)

	a.echo = e
	return a, nil
}

// startSweepers runs each cache's expiry sweep until ctx is cancelled.
func (a *app) startSweepers(ctx context.Context) {
	a.data.StartCleanup(ctx, a.cfg.CacheCleanupInterval)
	a.responses.StartCleanup(ctx, a.cfg.CacheCleanupInterval)
	a.revoked.StartCleanup(ctx, a.cfg.CacheCleanupInterval)
	a.limiter.StartCleanup(ctx, a.cfg.CacheCleanupInterval)
}

type healthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Caches  map[string]int `json:"caches"`

	RateLimitedClients int `json:"rate_limited_clients"`
}

func (a *app) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version,
		Caches: map[string]int{
			"data":     a.data.Len(),
			"response": a.responses.Len(),
			"revoked":  a.revoked.Len(),
		},
		RateLimitedClients: a.limiter.Clients(),
	})
}
