package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Unauthenticated(""), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{FieldInvalid("title", "bad"), http.StatusUnprocessableEntity},
		{Conflict("dup", nil), http.StatusConflict},
		{TooManyAttempts("slow down"), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", Forbidden("no")), http.StatusForbidden},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err).Status(); got != tt.want {
			t.Errorf("status of %v = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestValidationSummary(t *testing.T) {
	err := Validation(map[string]string{
		"title":  "The title field is required.",
		"status": "The selected status is invalid.",
	})
	if err.Message != "The selected status is invalid. (and 1 more errors)" {
		t.Fatalf("unexpected summary %q", err.Message)
	}

	single := FieldInvalid("email", "Email already taken.")
	if single.Message != "Email already taken." {
		t.Fatalf("unexpected summary %q", single.Message)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("unique violation")
	err := Conflict("dup", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected conflict to wrap cause")
	}
	if Unauthenticated("").Message != "Unauthenticated." {
		t.Fatal("expected default unauthenticated message")
	}
}
