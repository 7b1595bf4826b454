package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHS256RoundTrip(t *testing.T) {
	now := time.Now()
	claims := NewClaims("user-1", "alice", "biz-1", now, time.Hour)
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret, now)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Subject != claims.Subject || parsed.BusinessID != claims.BusinessID || parsed.Username != claims.Username {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret", now); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestHS256Expired(t *testing.T) {
	now := time.Now()
	token, err := SignHS256(NewClaims("user-1", "alice", "", now, time.Minute), "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s", now.Add(2*time.Minute)); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestRejectsAlgNone(t *testing.T) {
	now := time.Now()
	token, _ := SignHS256(NewClaims("user-1", "alice", "", now, time.Hour), "s")
	parts := strings.Split(token, ".")
	parts[0] = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	if _, err := ParseAndVerifyHS256(strings.Join(parts, "."), "s", now); err == nil {
		t.Fatal("expected alg=none to be rejected")
	}
}

func TestRejectsOtherHMACAlgorithms(t *testing.T) {
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, NewClaims("user-1", "alice", "", now, time.Hour)).SignedString([]byte("s"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s", now); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestRejectsMissingExpiryOrSubject(t *testing.T) {
	now := time.Now()
	noExp := NewClaims("user-1", "alice", "", now, time.Hour)
	noExp.ExpiresAt = nil
	noSub := NewClaims("", "alice", "", now, time.Hour)
	for name, claims := range map[string]Claims{"no exp": noExp, "no sub": noSub} {
		token, err := SignHS256(claims, "s")
		if err != nil {
			t.Fatalf("%s: SignHS256 failed: %v", name, err)
		}
		if _, err := ParseAndVerifyHS256(token, "s", now); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
	}
	for _, tc := range cases {
		got, ok := BearerToken(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("BearerToken(%q) = %q, %v", tc.in, got, ok)
		}
	}
}
