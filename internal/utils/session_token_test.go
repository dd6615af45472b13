package utils

import (
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := NewSessionToken("secret", "abc123", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	sid, err := ParseSessionToken("secret", tok)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if sid != "abc123" {
		t.Errorf("sid = %q, want %q", sid, "abc123")
	}
}

func TestSessionTokenWrongSecret(t *testing.T) {
	tok, err := NewSessionToken("secret", "abc123", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if _, err := ParseSessionToken("other-secret", tok); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestSessionTokenExpired(t *testing.T) {
	tok, err := NewSessionToken("secret", "abc123", -time.Minute)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if _, err := ParseSessionToken("secret", tok); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestSessionTokenGarbage(t *testing.T) {
	if _, err := ParseSessionToken("secret", "not.a.jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}
