package util

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	t.Cleanup(func() { PasswordCost = bcrypt.DefaultCost })

	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("expected hash to differ from plaintext")
	}
	if !CheckPassword("secret123", hash) {
		t.Fatal("expected password to verify")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("expected wrong password to fail")
	}

	other, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if other == hash {
		t.Fatal("expected salted hashes to differ")
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", ""},
		{"bearer", "Bearer abc.def", "abc.def"},
		{"lowercase scheme", "bearer abc", "abc"},
		{"basic scheme", "Basic dXNlcjpwYXNz", ""},
		{"no token", "Bearer", ""},
		{"extra parts", "Bearer a b", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/user", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := ExtractToken(r); got != tt.want {
				t.Fatalf("ExtractToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a != HashToken("token-a") {
		t.Fatal("expected deterministic hash")
	}
	if TokenHashEqual(a, HashToken("token-b")) {
		t.Fatal("expected different tokens to differ")
	}
	if !TokenHashEqual(a, HashToken("token-a")) {
		t.Fatal("expected equal digests to match")
	}
}

func TestFormatLoginAttemptKey(t *testing.T) {
	if got := FormatLoginAttemptKey("  John@Example.com "); got != "login_attempts:john@example.com" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"canceled", fmt.Errorf("publish: %w", context.Canceled), false, "context_canceled"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"no rows", fmt.Errorf("find: %w", pgx.ErrNoRows), false, "not_found"},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false, "constraint_violation"},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true, "db_connection_error"},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true, "db_transaction_rollback"},
		{"breaker", gobreaker.ErrOpenState, true, "breaker_open"},
		{"other", errors.New("boom"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, kind := ClassifyError(tt.err)
			if retryable != tt.retryable || kind != tt.kind {
				t.Fatalf("ClassifyError() = (%v, %q), want (%v, %q)", retryable, kind, tt.retryable, tt.kind)
			}
		})
	}
}
