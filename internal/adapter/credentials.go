package adapter

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/spf13/viper"
)

// Credentials holds the bearer token shared by every outgoing request.
// Only the login flow and the config watcher write it.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

// NewCredentials creates a credential source seeded with token
func NewCredentials(token string) *Credentials {
	return &Credentials{token: strings.TrimSpace(token)}
}

// Token implements domain.CredentialSource
func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Set replaces the token
func (c *Credentials) Set(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// WatchToken keeps creds in sync with server.token in the config file, so a
// `crate login` in another terminal takes effect without a restart.
// It is a no-op when no config file was loaded.
func WatchToken(creds *Credentials, logger *slog.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		token := viper.GetString("server.token")
		if token != creds.Token() {
			logger.Info("credential updated from config", "file", e.Name)
			creds.Set(token)
		}
	})
	viper.WatchConfig()
}

// TokenInfo describes a bearer token without verifying it
type TokenInfo struct {
	IsJWT     bool
	Subject   string
	ExpiresAt time.Time // Zero when the token carries no exp claim
}

// InspectToken decodes a JWT's claims without verifying its signature.
// Opaque tokens are reported with IsJWT=false and no error.
func InspectToken(token string) TokenInfo {
	if token == "" || strings.Count(token, ".") != 2 {
		return TokenInfo{}
	}
	tok, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return TokenInfo{}
	}

	info := TokenInfo{IsJWT: true}
	if sub, ok := tok.Subject(); ok {
		info.Subject = sub
	}
	if exp, ok := tok.Expiration(); ok {
		info.ExpiresAt = exp
	}
	return info
}

// Expired reports whether the token's exp claim is in the past
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Summary renders a one-line description, e.g. "alice · expires in 3 hours"
func (t TokenInfo) Summary(now time.Time) string {
	if !t.IsJWT {
		return "opaque token"
	}
	parts := []string{}
	if t.Subject != "" {
		parts = append(parts, t.Subject)
	}
	switch {
	case t.ExpiresAt.IsZero():
		parts = append(parts, "no expiry")
	case t.Expired(now):
		parts = append(parts, "expired "+humanize.RelTime(t.ExpiresAt, now, "ago", "from now"))
	default:
		parts = append(parts, "expires "+humanize.RelTime(t.ExpiresAt, now, "ago", "from now"))
	}
	return strings.Join(parts, " · ")
}
