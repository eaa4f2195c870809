// Package auth tracks who is signed in.
//
// A signed-in account is a JWT stored in a token file. The storage adapter
// asks CurrentUserID on every call, so logging in or out switches backends
// without restarting the daemon.
package auth

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrNoSecret     = errors.New("no jwt secret configured")
)

const issuer = "attentive"

// UserClaims is the payload of an account token.
type UserClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Provider validates and persists the account token.
type Provider struct {
	secret    []byte
	tokenPath string
	now       func() time.Time

	mu     sync.RWMutex
	claims *UserClaims
	token  string
}

// NewProvider creates a provider and loads any saved token. A saved token
// that no longer validates is ignored.
func NewProvider(secret, tokenPath string) *Provider {
	p := &Provider{
		secret:    []byte(secret),
		tokenPath: tokenPath,
		now:       time.Now,
	}
	if tokenPath == "" {
		return p
	}
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return p
	}
	token := strings.TrimSpace(string(data))
	if claims, err := p.Validate(token); err == nil {
		p.claims, p.token = claims, token
	} else {
		log.Printf("[auth] Ignoring saved token: %v", err)
	}
	return p
}

// Issue signs a token for userID valid for ttl.
func (p *Provider) Issue(userID, username string, ttl time.Duration) (string, error) {
	if len(p.secret) == 0 {
		return "", ErrNoSecret
	}
	now := p.now()
	claims := UserClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Validate checks a token's signature and expiry.
func (p *Provider) Validate(tokenString string) (*UserClaims, error) {
	if len(p.secret) == 0 {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Login validates token, makes it current and saves it.
func (p *Provider) Login(token string) (*UserClaims, error) {
	token = strings.TrimSpace(token)
	claims, err := p.Validate(token)
	if err != nil {
		return nil, err
	}
	if p.tokenPath != "" {
		if err := os.MkdirAll(filepath.Dir(p.tokenPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create token dir: %w", err)
		}
		if err := os.WriteFile(p.tokenPath, []byte(token), 0600); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
	}

	p.mu.Lock()
	p.claims, p.token = claims, token
	p.mu.Unlock()
	log.Printf("[auth] Signed in as %s", claims.UserID)
	return claims, nil
}

// Logout forgets the current token and removes the saved copy.
func (p *Provider) Logout() error {
	p.mu.Lock()
	p.claims, p.token = nil, ""
	p.mu.Unlock()

	if p.tokenPath == "" {
		return nil
	}
	if err := os.Remove(p.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// Claims returns the current claims, or nil when signed out or expired.
func (p *Provider) Claims() *UserClaims {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.claims == nil {
		return nil
	}
	if exp := p.claims.ExpiresAt; exp != nil && !p.now().Before(exp.Time) {
		return nil
	}
	c := *p.claims
	return &c
}

// CurrentUserID returns the signed-in user id.
func (p *Provider) CurrentUserID() (string, bool) {
	c := p.Claims()
	if c == nil {
		return "", false
	}
	return c.UserID, true
}
