package main

import (
	"crypto/subtle"
	"net/http"

	"github.com/MichaelFlanagan/SystemFifty/pkg/session"
	"github.com/MichaelFlanagan/SystemFifty/pkg/store"

	"github.com/gin-gonic/gin"
)

const seedWarning = "IMPORTANT: Change the admin password after first login!"

func (s *server) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, maxAge, "/", "", s.cfg.SecureCookies, true)
}

func (s *server) loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	user, err := s.store.Users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		s.respondError(c, err, "Failed to log in")
		return
	}
	token, sess, err := s.auth.Issue(ctx, user)
	if err != nil {
		s.respondError(c, err, "failed to generate token")
		return
	}
	s.log.Info(ctx, "admin logged in", "user", user.ID)
	s.setSessionCookie(c, token, int(s.auth.TTL().Seconds()))
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": sess.ExpiresAt, "user": sess})
}

func (s *server) logoutHandler(c *gin.Context) {
	sess, _ := session.FromContext(c)
	if err := s.auth.Revoke(c.Request.Context(), sess); err != nil {
		s.respondError(c, err, "Failed to log out")
		return
	}
	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *server) sessionHandler(c *gin.Context) {
	sess, ok := session.FromContext(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": sess, "expiresAt": sess.ExpiresAt})
}

// secretMatches compares against SEED_SECRET in constant time. An unset
// secret never matches.
func (s *server) secretMatches(got string) bool {
	want := s.cfg.SeedSecret
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *server) bindSecret(c *gin.Context) bool {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if !s.secretMatches(req.Secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return false
	}
	return true
}

func (s *server) seedHandler(c *gin.Context) {
	if !s.bindSecret(c) {
		return
	}
	admin, created, err := seedAdmin(c.Request.Context(), s.store.Users, s.cfg)
	if err != nil {
		s.respondError(c, err, "Failed to seed database")
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "Database already seeded", "admin": gin.H{"email": admin.Email}})
		return
	}
	s.log.Info(c.Request.Context(), "seeded admin", "email", admin.Email)
	c.JSON(http.StatusOK, gin.H{
		"message": "Database seeded successfully",
		"admin":   gin.H{"email": admin.Email},
		"warning": seedWarning,
	})
}

func (s *server) migrateHandler(c *gin.Context) {
	if !s.bindSecret(c) {
		return
	}
	if err := store.Migrate(s.db); err != nil {
		s.respondError(c, err, "Failed to run migrations")
		return
	}
	s.log.Info(c.Request.Context(), "migrations completed")
	c.JSON(http.StatusOK, gin.H{"message": "Migrations completed successfully"})
}
