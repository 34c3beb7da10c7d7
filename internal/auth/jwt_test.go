package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestTokenService creates a TokenService with a fixed, known secret so
// tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestIssue_ReturnsWellFormedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	// A JWT has three dot-separated parts: header.payload.signature
	if parts := strings.Count(token, "."); parts != 2 {
		t.Errorf("Issue() token doesn't look like a JWT (expected 2 dots, got %d)", parts)
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	for _, userID := range []string{"user-abc-123", "x", "d0h3qrk9a6lb8e2fchg0"} {
		token, err := ts.Issue(userID)
		if err != nil {
			t.Fatalf("Issue(%q) error = %v", userID, err)
		}

		got, err := ts.Verify(token)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if got != userID {
			t.Errorf("Verify() userID = %q, want %q", got, userID)
		}
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueWithDuration("user-123", -1*time.Second)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}

	_, err = ts.Verify(token)
	if err == nil {
		t.Fatal("Verify() should fail for an expired token")
	}
	// The expired kind must be distinguishable from generic invalid —
	// the middleware tells clients to log in again only for this case.
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want ErrTokenExpired", err)
	}
	if errors.Is(err, ErrTokenMalformed) {
		t.Error("expired token should not also match ErrTokenMalformed")
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue("user-123")

	// Flip a character in the signature segment.
	tampered := token[:len(token)-2] + "xx"

	_, err := ts.Verify(tampered)
	if err == nil {
		t.Fatal("Verify() should fail for a tampered token")
	}
	if !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("Verify() error = %v, want ErrTokenMalformed", err)
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Error("tampered token should not match ErrTokenExpired")
	}
}

func TestVerify_GarbageInput(t *testing.T) {
	ts := newTestTokenService(t)

	for _, input := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := ts.Verify(input)
		if !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("Verify(%q) error = %v, want ErrTokenMalformed", input, err)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ts := newTestTokenService(t)
	other, err := NewTokenService("a-completely-different-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := other.Issue("user-123")

	_, err = ts.Verify(token)
	if !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("Verify() with wrong secret error = %v, want ErrTokenMalformed", err)
	}
}
