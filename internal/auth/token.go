// Package auth verifies callers and decides what they may do.
package auth

import (
	"context"
	"fmt"
	"time"

	"complaintdesk/backend/internal/apperr"
	"complaintdesk/backend/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller attached to a request or connection.
type Identity struct {
	AccountID string
	Role      models.Role
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.AccountID != ""
}

// Claims is the signed token payload.
type Claims struct {
	AccountID string `json:"uid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies bearer tokens signed with a server secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration, issuer string) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Issue signs a token for id valid for the configured TTL.
func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.now()
	claims := Claims{
		AccountID: id.AccountID,
		Role:      string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   id.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and issuer and returns the caller identity.
// Every failure is reported as Unauthenticated.
func (t *Tokens) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.Unauthenticated("authorization token missing")
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, apperr.Unauthenticated("invalid or expired token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.AccountID == "" {
		return Identity{}, apperr.Unauthenticated("invalid or expired token")
	}

	role := models.Role(claims.Role)
	if !role.Valid() {
		return Identity{}, apperr.Unauthenticated("invalid or expired token")
	}

	return Identity{AccountID: claims.AccountID, Role: role}, nil
}
