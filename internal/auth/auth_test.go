package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoginLogout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "token")
	p := NewProvider(testSecret, path)

	if _, ok := p.CurrentUserID(); ok {
		t.Fatal("new provider should be signed out")
	}

	token, err := p.Issue("user-1", "ada", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Login(token); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if id, ok := p.CurrentUserID(); !ok || id != "user-1" {
		t.Errorf("CurrentUserID = %q %v", id, ok)
	}

	// a fresh provider picks the saved token up
	reloaded := NewProvider(testSecret, path)
	if id, ok := reloaded.CurrentUserID(); !ok || id != "user-1" {
		t.Errorf("reloaded CurrentUserID = %q %v", id, ok)
	}

	if err := p.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok := p.CurrentUserID(); ok {
		t.Error("should be signed out")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("token file should be removed")
	}
	if err := p.Logout(); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}

func TestValidateRejectsBadTokens(t *testing.T) {
	p := NewProvider(testSecret, "")

	other := NewProvider("another-secret-another-secret-xx", "")
	forged, _ := other.Issue("user-1", "ada", time.Hour)
	if _, err := p.Validate(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged token: %v", err)
	}
	if _, err := p.Login("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: %v", err)
	}

	p.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := p.Issue("user-1", "ada", time.Hour)
	p.now = time.Now
	if _, err := p.Validate(old); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expired token: %v", err)
	}
}

func TestExpiryEndsSession(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	p := NewProvider(testSecret, "")
	p.now = func() time.Time { return now }

	token, _ := p.Issue("user-1", "ada", time.Minute)
	if _, err := p.Login(token); err != nil {
		t.Fatalf("Login: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, ok := p.CurrentUserID(); ok {
		t.Error("expired login should read as signed out")
	}
}

func TestNoSecret(t *testing.T) {
	p := NewProvider("", "")
	if _, err := p.Issue("u", "n", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Errorf("Issue: %v", err)
	}
	if _, err := p.Login("x"); !errors.Is(err, ErrNoSecret) {
		t.Errorf("Login: %v", err)
	}
}
