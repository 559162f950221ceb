package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/config"
	"github.com/MichaelFlanagan/SystemFifty/pkg/logging"
	"github.com/MichaelFlanagan/SystemFifty/pkg/ratelimit"
	"github.com/MichaelFlanagan/SystemFifty/pkg/session"
	"github.com/MichaelFlanagan/SystemFifty/pkg/store"
	"github.com/MichaelFlanagan/SystemFifty/pkg/uploads"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Notifier is told about every stored contact message.
type Notifier interface {
	NotifyContact(ctx context.Context, m *models.ContactMessage) error
}

type logNotifier struct {
	log logging.Logger
}

func (n logNotifier) NotifyContact(ctx context.Context, m *models.ContactMessage) error {
	n.log.Info(ctx, "contact message received", "id", m.ID, "name", m.Name, "email", m.Email)
	return nil
}

type server struct {
	cfg      *config.Config
	log      logging.Logger
	db       *gorm.DB
	store    *store.Store
	auth     *session.Authority
	sink     *uploads.Sink
	notifier Notifier
	retainer *retainer

	loginLimiter   *ratelimit.Limiter
	contactLimiter *ratelimit.Limiter
	adminLimiter   *ratelimit.Limiter
}

func newServer(cfg *config.Config, log logging.Logger, db *gorm.DB, sink *uploads.Sink) *server {
	st := store.New(db)
	return &server{
		cfg:      cfg,
		log:      log,
		db:       db,
		store:    st,
		auth:     session.NewAuthority([]byte(cfg.JWTSecret), cfg.SessionTTL, st.Sessions),
		sink:     sink,
		notifier: logNotifier{log: log},
		retainer: newRetainer(cfg.Upload.Retention, st.Uploads, sink, log),

		loginLimiter:   ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
		contactLimiter: ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
		adminLimiter:   ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

// setupRoutes registers every route at the root and again under /api. Only
// TRUSTED_PROXIES may set the client IP through forwarding headers.
func (s *server) setupRoutes(r *gin.Engine) error {
	if err := r.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(s.auth.Middleware())
	s.mount(r.Group(""))
	s.mount(r.Group("/api"))
	r.GET("/uploads/:name", s.serveUploadHandler)
	r.GET("/healthz", s.healthHandler)
	return nil
}

func (s *server) mount(g *gin.RouterGroup) {
	g.GET("/picks", s.currentPickHandler)
	g.GET("/site-images", s.getSiteImagesHandler)
	g.POST("/contact", s.contactLimiter.Middleware(), s.contactHandler)
	g.POST("/auth/login", s.loginLimiter.Middleware(), s.loginHandler)
	g.GET("/auth/session", s.sessionHandler)
	g.POST("/seed", s.adminLimiter.Middleware(), s.seedHandler)
	g.POST("/migrate", s.adminLimiter.Middleware(), s.migrateHandler)

	authGroup := g.Group("")
	authGroup.Use(session.Gate())
	authGroup.POST("/picks", s.createPickHandler)
	authGroup.PATCH("/picks/:id", s.updatePickHandler)
	authGroup.DELETE("/picks/:id", s.deletePickHandler)
	authGroup.PATCH("/site-images", s.updateSiteImagesHandler)
	authGroup.POST("/upload", s.uploadFileHandler)
	authGroup.POST("/auth/logout", s.logoutHandler)
}

// currentPickHandler returns the most recent pick, or null.
func (s *server) currentPickHandler(c *gin.Context) {
	pick, err := s.store.Picks.Current(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "Failed to fetch pick")
		return
	}
	c.JSON(http.StatusOK, pick)
}

func (s *server) createPickHandler(c *gin.Context) {
	var req struct {
		Title    string  `json:"title"`
		Content  string  `json:"content"`
		ImageURL *string `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pick, err := s.store.Picks.Create(c.Request.Context(), store.NewPick{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		s.respondError(c, err, "Failed to create pick")
		return
	}
	c.JSON(http.StatusOK, pick)
}

func (s *server) updatePickHandler(c *gin.Context) {
	var req store.PickPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pick, replaced, err := s.store.Picks.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.respondError(c, err, "Failed to update pick")
		return
	}
	s.retainer.release(c.Request.Context(), replaced)
	c.JSON(http.StatusOK, pick)
}

func (s *server) deletePickHandler(c *gin.Context) {
	replaced, err := s.store.Picks.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, "Failed to delete pick")
		return
	}
	s.retainer.release(c.Request.Context(), replaced)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *server) getSiteImagesHandler(c *gin.Context) {
	images, err := s.store.SiteImages.Get(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "Failed to fetch site images")
		return
	}
	c.JSON(http.StatusOK, images)
}

func (s *server) updateSiteImagesHandler(c *gin.Context) {
	var req store.SiteImagesPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	images, replaced, err := s.store.SiteImages.Update(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err, "Failed to update site images")
		return
	}
	s.retainer.release(c.Request.Context(), replaced)
	c.JSON(http.StatusOK, images)
}

// uploadFileHandler stores the multipart field "file" and returns its public path.
func (s *server) uploadFileHandler(c *gin.Context) {
	ctx := c.Request.Context()
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.respondError(c, err, "Failed to upload file")
		return
	}
	defer f.Close()

	stored, err := s.sink.Store(ctx, fh.Filename, f)
	if err != nil {
		s.respondError(c, err, "Failed to upload file")
		return
	}
	rec := &models.Upload{
		Name:         stored.Name,
		Path:         stored.Path,
		OriginalName: stored.OriginalName,
		ContentType:  stored.ContentType,
		Size:         stored.Size,
		Backend:      s.sink.Backend().Kind(),
	}
	if sess, ok := session.FromContext(c); ok {
		rec.UploadedBy = sess.UserID
	}
	if err := s.store.Uploads.Record(ctx, rec); err != nil {
		if rmErr := s.sink.Remove(context.WithoutCancel(ctx), stored.Path); rmErr != nil {
			s.log.Warn(ctx, "failed to remove unrecorded upload", "path", stored.Path, "error", rmErr)
		}
		s.respondError(c, err, "Failed to upload file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": stored.Path})
}

// serveUploadHandler streams a stored file. Stored names never change
// content, so responses are cacheable forever.
func (s *server) serveUploadHandler(c *gin.Context) {
	rc, info, err := s.sink.Open(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err, "Failed to read file")
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Header("X-Content-Type-Options", "nosniff")
	if !strings.HasPrefix(info.ContentType, "image/") {
		c.Header("Content-Disposition", "attachment")
	}
	if !info.ModTime.IsZero() {
		c.Header("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
	}
	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, nil)
}

func (s *server) contactHandler(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required,max=255"`
		Email   string `json:"email" binding:"required,email,max=320"`
		Message string `json:"message" binding:"required,max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	msg := &models.ContactMessage{
		Name:       req.Name,
		Email:      req.Email,
		Message:    req.Message,
		RemoteAddr: c.ClientIP(),
	}
	if err := s.store.Contacts.Save(ctx, msg); err != nil {
		s.respondError(c, err, "Failed to send message")
		return
	}
	if err := s.notifier.NotifyContact(ctx, msg); err != nil {
		s.log.Warn(ctx, "contact notification failed", "id", msg.ID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *server) healthHandler(c *gin.Context) {
	if err := store.Ping(c.Request.Context(), s.db); err != nil {
		s.log.Error(c.Request.Context(), "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
