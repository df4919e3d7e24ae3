// Package identity issues and verifies session tokens.
//
// Sign-in is deliberately thin: a display name is exchanged for a signed
// token carrying a fresh user ID. Sign-out revokes the token's ID until it
// would have expired anyway.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pkordes/tabinico/internal/domain"
)

// User is an authenticated caller.
type User struct {
	ID   string
	Name string
}

// Claims are the JWT claims of a session token.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Denylist remembers revoked token IDs until their expiry.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	deny   Denylist
	now    func() time.Time
}

// NewIssuer returns an Issuer. now may be nil.
func NewIssuer(secret string, ttl time.Duration, deny Denylist, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, deny: deny, now: now}
}

// SignIn creates a new user and returns a token for them.
func (i *Issuer) SignIn(name string) (User, string, time.Time, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, "", time.Time{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	now := i.now()
	exp := now.Add(i.ttl)
	u := User{ID: uuid.NewString(), Name: name}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return User{}, "", time.Time{}, fmt.Errorf("identity.Issuer.SignIn: %w", err)
	}
	return u, signed, exp, nil
}

// Verify parses a token and checks it has not been revoked.
// Every rejection wraps domain.ErrUnauthenticated.
func (i *Issuer) Verify(ctx context.Context, token string) (User, *Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return User{}, nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return User{}, nil, fmt.Errorf("%w: token is missing subject or id", domain.ErrUnauthenticated)
	}

	revoked, err := i.deny.Revoked(ctx, claims.ID)
	if err != nil {
		return User{}, nil, fmt.Errorf("identity.Issuer.Verify: %w", err)
	}
	if revoked {
		return User{}, nil, fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
	}

	return User{ID: claims.Subject, Name: claims.Name}, claims, nil
}

// SignOut revokes token. Signing out with an already invalid token is
// reported as unauthenticated.
func (i *Issuer) SignOut(ctx context.Context, token string) error {
	_, claims, err := i.Verify(ctx, token)
	if err != nil {
		return err
	}
	if err := i.deny.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("identity.Issuer.SignOut: %w", err)
	}
	return nil
}

type ctxKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the caller, if the request was authenticated.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}
