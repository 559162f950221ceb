package session

import (
	"context"
	"strings"

	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// CookieName is the cookie carrying the session token.
const CookieName = "sf_session"

const ginKey = "session"

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session resolved for this request, if any. It
// accepts either a *gin.Context or a plain request context.
func FromContext(ctx context.Context) (*Session, bool) {
	if c, ok := ctx.(*gin.Context); ok {
		if v, ok := c.Get(ginKey); ok {
			s, ok := v.(*Session)
			return s, ok && s != nil
		}
		ctx = c.Request.Context()
	}
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

// Middleware resolves the caller's session when a valid token is present.
// Invalid tokens are ignored; use Gate on routes that require a session. A
// datastore failure while checking a token aborts with 500.
func (a *Authority) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}
		s, err := a.Verify(c.Request.Context(), token)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindStorage {
				_ = c.Error(err)
				c.AbortWithStatusJSON(apperr.KindStorage.Status(), gin.H{"error": "Failed to verify session"})
				return
			}
			c.Next()
			return
		}
		c.Set(ginKey, s)
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), s))
		c.Next()
	}
}

// Gate aborts with 401 unless Middleware resolved a session. It must run
// before any handler that mutates state.
func Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := FromContext(c); !ok {
			c.AbortWithStatusJSON(apperr.KindUnauthorized.Status(), gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
