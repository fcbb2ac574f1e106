package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/auth"
)

// mockRecorder collects audit entries for assertions.
type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newTestContext(method, path string, opts ...func(*http.Request)) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withActor(id string, role auth.Role) func(*http.Request) {
	return func(req *http.Request) {
		*req = *req.WithContext(auth.WithActor(req.Context(), auth.NewActor(id, id, role)))
	}
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAudit_PatientRead(t *testing.T) {
	rec := &mockRecorder{}
	pid := uuid.NewString()
	c, _ := newTestContext(http.MethodGet, "/api/v1/patients/"+pid, withActor("doc-1", auth.RoleDoctor))
	c.Set("request_id", "req-1")

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}

	e := rec.last()
	if e.UserID != "doc-1" || e.Role != "doctor" {
		t.Errorf("unexpected actor %q/%q", e.UserID, e.Role)
	}
	if e.Resource != "patients" || e.ResourceID != pid {
		t.Errorf("unexpected resource %q/%q", e.Resource, e.ResourceID)
	}
	if e.PatientID != pid {
		t.Errorf("expected patient id %s, got %s", pid, e.PatientID)
	}
	if e.Action != "read" || e.StatusCode != http.StatusOK || e.RequestID != "req-1" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestAudit_RecordsDeniedRequests(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodDelete, "/api/v1/patients/abc", withActor("n-1", auth.RoleNurse))

	err := Audit(zerolog.Nop(), rec)(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "required permission: DELETE_PATIENTS")
	})(c)
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}

	e := rec.last()
	if e.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", e.StatusCode)
	}
	if e.Action != "delete" {
		t.Errorf("expected delete, got %s", e.Action)
	}
	if e.PatientID != "" {
		t.Errorf("non-uuid id must not be reported as patient, got %s", e.PatientID)
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	rec := &mockRecorder{}
	for _, path := range []string{"/health", "/", "/metrics"} {
		c, _ := newTestContext(http.MethodGet, path)
		_ = Audit(zerolog.Nop(), rec)(okHandler)(c)
	}
	if rec.count() != 0 {
		t.Errorf("expected no entries, got %d", rec.count())
	}
}

func TestAudit_RecorderError_DoesNotBreakRequest(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	c, res := newTestContext(http.MethodPost, "/api/v1/inventory")

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", res.Code)
	}
	if rec.last().Action != "create" {
		t.Errorf("expected create, got %s", rec.last().Action)
	}
}

func TestAudit_PatientIDFromQuery(t *testing.T) {
	rec := &mockRecorder{}
	pid := uuid.NewString()
	c, _ := newTestContext(http.MethodGet, "/api/v1/appointments?patient_id="+pid)

	_ = Audit(zerolog.Nop(), rec)(okHandler)(c)

	e := rec.last()
	if e.PatientID != pid {
		t.Errorf("expected %s, got %s", pid, e.PatientID)
	}
	if e.UserID != "" {
		t.Errorf("anonymous request should have no user, got %s", e.UserID)
	}
}

func TestAuditRecorderFunc(t *testing.T) {
	var got AuditEntry
	f := AuditRecorderFunc(func(e AuditEntry) error {
		got = e
		return nil
	})
	c, _ := newTestContext(http.MethodPatch, "/api/v1/referrals/r1")
	_ = Audit(zerolog.Nop(), f)(okHandler)(c)

	if got.Resource != "referrals" || got.Action != "update" {
		t.Errorf("unexpected entry %+v", got)
	}
}

func TestSplitResource(t *testing.T) {
	tests := []struct {
		path, resource, id string
	}{
		{"/api/v1/patients", "patients", ""},
		{"/api/v1/patients/123", "patients", "123"},
		{"/api/v1/admin/cache", "admin", "cache"},
		{"/api/v1/", "unknown", ""},
	}
	for _, tt := range tests {
		r, id := splitResource(tt.path)
		if r != tt.resource || id != tt.id {
			t.Errorf("splitResource(%q) = %q, %q; want %q, %q", tt.path, r, id, tt.resource, tt.id)
		}
	}
}

func TestHttpMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range tests {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("httpMethodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}
