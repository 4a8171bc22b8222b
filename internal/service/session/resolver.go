// Package session assigns a stable opaque identifier to each client without a
// login step. The identifier groups the client's chat turns in the store.
package session

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
)

// Session is the identity resolved for one request.
type Session struct {
	ID        string
	ExpiresAt time.Time
	// Fresh is set when the identifier was minted for this request.
	Fresh bool
}

// Resolver maps requests to session identifiers. Resolve never fails: a
// request without a usable credential gets a newly issued session.
type Resolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) Session
	Issue(w http.ResponseWriter) Session
}

// New builds the resolver selected by cfg.Mode.
func New(cfg config.SessionConfig, logger zerolog.Logger) (Resolver, error) {
	switch cfg.Mode {
	case config.SessionModeAnonymous:
		return NewAnonymousResolver(cfg.AnonymousID), nil
	case config.SessionModeCookie, config.SessionModeHeader:
	default:
		return nil, fmt.Errorf("unknown session mode %q", cfg.Mode)
	}

	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		generated, err := NewSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		logger.Warn().Msg("SESSION_SECRET not set, using an ephemeral secret; sessions will not survive a restart")
	}

	var transport Transport = CookieTransport{Name: cfg.CookieName, Secure: cfg.CookieSecure}
	if cfg.Mode == config.SessionModeHeader {
		transport = HeaderTransport{Name: HeaderName}
	}

	return NewTokenResolver(secret, cfg.TTL, transport, logger), nil
}

// NewSecret returns 32 random bytes suitable for signing session tokens.
func NewSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return secret, nil
}

// AnonymousResolver puts every client into one shared session.
type AnonymousResolver struct {
	id string
}

func NewAnonymousResolver(id string) *AnonymousResolver {
	if id == "" {
		id = "global"
	}
	return &AnonymousResolver{id: id}
}

func (a *AnonymousResolver) Resolve(_ http.ResponseWriter, _ *http.Request) Session {
	return Session{ID: a.id}
}

func (a *AnonymousResolver) Issue(_ http.ResponseWriter) Session {
	return Session{ID: a.id}
}
