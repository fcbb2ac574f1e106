package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{NotFound("patient"), http.StatusNotFound},
		{Validation("first_name is required"), http.StatusBadRequest},
		{fmt.Errorf("update: %w", ErrConflict), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestToHTTP_HidesInternalErrors(t *testing.T) {
	he := ToHTTP(errors.New("pq: connection refused"))
	if he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", he.Code)
	}
	if he.Message != "internal server error" {
		t.Errorf("expected generic message, got %v", he.Message)
	}
}

func TestToHTTP_KeepsClientMessages(t *testing.T) {
	he := ToHTTP(NotFound("referral"))
	if he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", he.Code)
	}
	if he.Message != "referral not found" {
		t.Errorf("unexpected message %v", he.Message)
	}
}

func TestConflict(t *testing.T) {
	err := Conflict("referral is %s", "completed")
	if !errors.Is(err, ErrConflict) {
		t.Fatal("expected ErrConflict")
	}
	if err.Error() != "conflict: referral is completed" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
