package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakeStore struct {
	rows    map[string]*models.Session
	user    models.User
	seq     int
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows: map[string]*models.Session{},
		user: models.User{ID: "u1", Email: "admin@systemfifty.com", Name: "Admin"},
	}
}

func (f *fakeStore) Create(ctx context.Context, userID string, expiresAt time.Time) (*models.Session, error) {
	f.seq++
	s := &models.Session{ID: "s" + strconv.Itoa(f.seq), UserID: userID, ExpiresAt: expiresAt, User: f.user}
	f.rows[s.ID] = s
	return s, nil
}

func (f *fakeStore) Active(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	s, ok := f.rows[id]
	if !ok || s.Revoked || !now.Before(s.ExpiresAt) {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	return s, nil
}

func (f *fakeStore) Revoke(ctx context.Context, id string) error {
	if s, ok := f.rows[id]; ok {
		s.Revoked = true
	}
	return nil
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newTestAuthority(t *testing.T) (*Authority, *fakeStore, *fixedClock) {
	t.Helper()
	fs := newFakeStore()
	clk := &fixedClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	a := NewAuthority([]byte("test-secret"), time.Hour, fs).WithClock(clk.now)
	return a, fs, clk
}

// -------- tests --------

func TestIssueAndVerify(t *testing.T) {
	a, fs, _ := newTestAuthority(t)
	ctx := context.Background()

	token, s, err := a.Issue(ctx, &fs.user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "u1", s.UserID)

	got, err := a.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "admin@systemfifty.com", got.Email)
	assert.Equal(t, "Admin", got.Name)
}

func TestVerifyRejects(t *testing.T) {
	a, fs, clk := newTestAuthority(t)
	ctx := context.Background()
	token, s, err := a.Issue(ctx, &fs.user)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := a.Verify(ctx, "")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := a.Verify(ctx, "not-a-token")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
	t.Run("other secret", func(t *testing.T) {
		other := NewAuthority([]byte("other"), time.Hour, fs).WithClock(clk.now)
		_, err := other.Verify(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
	t.Run("unsigned", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
			ID: s.ID, Subject: "u1", ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
		}})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = a.Verify(ctx, raw)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
	t.Run("expired", func(t *testing.T) {
		late := NewAuthority([]byte("test-secret"), time.Hour, fs).WithClock(func() time.Time { return clk.t.Add(2 * time.Hour) })
		_, err := late.Verify(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
	t.Run("revoked", func(t *testing.T) {
		require.NoError(t, a.Revoke(ctx, s))
		_, err := a.Verify(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestVerifyPropagatesStorageErrors(t *testing.T) {
	a, fs, _ := newTestAuthority(t)
	ctx := context.Background()
	token, _, err := a.Issue(ctx, &fs.user)
	require.NoError(t, err)

	fs.loadErr = apperr.Storage("failed to load session", errors.New("conn refused"))
	_, err = a.Verify(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, fs, _ := newTestAuthority(t)
	token, _, err := a.Issue(context.Background(), &fs.user)
	require.NoError(t, err)

	r := gin.New()
	r.Use(a.Middleware())
	r.POST("/mutate", Gate(), func(c *gin.Context) {
		s, ok := FromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user": s.Email})
	})

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
}

func TestMiddlewareStorageFailureIsNotUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, fs, _ := newTestAuthority(t)
	token, _, err := a.Issue(context.Background(), &fs.user)
	require.NoError(t, err)
	fs.loadErr = apperr.Storage("failed to load session", errors.New("conn refused"))

	r := gin.New()
	r.Use(a.Middleware())
	reached := false
	r.POST("/mutate", Gate(), func(c *gin.Context) { reached = true })

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to verify session"}`, rec.Body.String())
	assert.False(t, reached)
}
