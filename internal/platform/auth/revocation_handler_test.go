package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/cache"
)

func serveRevocations(t *testing.T, store *TokenRevocationStore, actor *Actor) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	g := e.Group("/api/v1")
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if actor != nil {
				c.SetRequest(c.Request().WithContext(WithActor(context.Background(), actor)))
			}
			return next(c)
		}
	})
	RegisterRevocationRoutes(g, store)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/revocations", nil))
	return rec
}

func TestRevocationRoutes_AdminAllowed(t *testing.T) {
	store := NewTokenRevocationStore(cache.New[string]())
	store.Revoke("jti-1", "u1", time.Now().Add(time.Hour))
	store.Revoke("jti-2", "u1", time.Now().Add(time.Hour))

	rec := serveRevocations(t, store, NewActor("a1", "admin", RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp revocationCountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected count 2, got %d", resp.Count)
	}
}

func TestRevocationRoutes_NonAdminDenied(t *testing.T) {
	store := NewTokenRevocationStore(cache.New[string]())

	if rec := serveRevocations(t, store, NewActor("n1", "nurse", RoleNurse)); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if rec := serveRevocations(t, store, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
