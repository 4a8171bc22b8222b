package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderName  = "X-Session-Token"
	tokenIssuer = "chat-relay"
)

var errMissingSessionID = errors.New("token carries no session id")

// Transport moves the session token between client and server.
type Transport interface {
	Extract(r *http.Request) string
	Attach(w http.ResponseWriter, token string, ttl time.Duration)
}

// CookieTransport stores the token in an HttpOnly cookie.
type CookieTransport struct {
	Name   string
	Secure bool
}

func (c CookieTransport) Extract(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (c CookieTransport) Attach(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HeaderTransport carries the token in a request/response header.
type HeaderTransport struct {
	Name string
}

func (h HeaderTransport) Extract(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get(h.Name))
	return strings.TrimPrefix(value, "Bearer ")
}

func (h HeaderTransport) Attach(w http.ResponseWriter, token string, _ time.Duration) {
	w.Header().Set(h.Name, token)
}

// TokenResolver issues HS256-signed tokens whose jti is the session id.
// Expiry is fixed at issuance and not extended on use.
type TokenResolver struct {
	secret    []byte
	ttl       time.Duration
	transport Transport
	now       func() time.Time
	log       zerolog.Logger
}

func NewTokenResolver(secret []byte, ttl time.Duration, transport Transport, logger zerolog.Logger) *TokenResolver {
	return &TokenResolver{
		secret:    secret,
		ttl:       ttl,
		transport: transport,
		now:       time.Now,
		log:       logger.With().Str("component", "session").Logger(),
	}
}

// Resolve returns the session carried by the request, or issues a new one.
func (t *TokenResolver) Resolve(w http.ResponseWriter, r *http.Request) Session {
	if raw := t.transport.Extract(r); raw != "" {
		session, err := t.parse(raw)
		if err == nil {
			return session
		}
		t.log.Debug().Err(err).Msg("discarding unusable session token")
	}
	return t.Issue(w)
}

// Issue mints a new session and attaches its token to the response.
func (t *TokenResolver) Issue(w http.ResponseWriter) Session {
	now := t.now()
	session := Session{
		ID:        uuid.NewString(),
		ExpiresAt: now.Add(t.ttl),
		Fresh:     true,
	}

	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		// The request still gets a usable session, it just won't persist.
		t.log.Error().Err(err).Msg("failed to sign session token")
		return session
	}

	t.transport.Attach(w, signed, t.ttl)
	return session
}

func (t *TokenResolver) parse(raw string) (Session, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("parse session token: %w", err)
	}
	if !token.Valid {
		return Session{}, errors.New("session token is not valid")
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return Session{}, errMissingSessionID
	}

	return Session{ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}
