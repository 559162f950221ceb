// Package session issues and verifies admin login sessions. A session is a
// row in the sessions table; the browser holds an HS256 token whose ID claim
// names that row.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// Store persists sessions. *store.Sessions implements it.
type Store interface {
	Create(ctx context.Context, userID string, expiresAt time.Time) (*models.Session, error)
	Active(ctx context.Context, id string, now time.Time) (*models.Session, error)
	Revoke(ctx context.Context, id string) error
}

// Session is the verdict for an authenticated caller.
type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"-"`
}

// Claims are the token claims. RegisteredClaims.ID carries the session ID
// and Subject the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type Authority struct {
	secret []byte
	ttl    time.Duration
	store  Store
	now    func() time.Time
}

func NewAuthority(secret []byte, ttl time.Duration, store Store) *Authority {
	return &Authority{secret: secret, ttl: ttl, store: store, now: time.Now}
}

// WithClock overrides the time source used for expiry checks.
func (a *Authority) WithClock(now func() time.Time) *Authority {
	a.now = now
	return a
}

// TTL is the lifetime of newly issued sessions.
func (a *Authority) TTL() time.Duration { return a.ttl }

// Issue opens a session for u and returns its signed token.
func (a *Authority) Issue(ctx context.Context, u *models.User) (string, *Session, error) {
	now := a.now()
	row, err := a.store.Create(ctx, u.ID, now.Add(a.ttl))
	if err != nil {
		return "", nil, err
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        row.ID,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(row.ExpiresAt),
		},
		Email: u.Email,
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", nil, apperr.Storage("failed to generate token", err)
	}
	return signed, &Session{ID: row.ID, UserID: u.ID, Email: u.Email, Name: u.Name, ExpiresAt: row.ExpiresAt}, nil
}

// Verify checks the token signature and expiry, then confirms the session
// row is still active. Any failure is Unauthorized except storage errors.
func (a *Authority) Verify(ctx context.Context, tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.ID == "" {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	row, err := a.store.Active(ctx, claims.ID, a.now())
	if err != nil {
		return nil, err
	}
	if row.UserID != claims.Subject {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	return &Session{ID: row.ID, UserID: row.UserID, Email: row.User.Email, Name: row.User.Name, ExpiresAt: row.ExpiresAt}, nil
}

// Revoke ends s.
func (a *Authority) Revoke(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("nil session")
	}
	return a.store.Revoke(ctx, s.ID)
}
