package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/MichaelFlanagan/SystemFifty/pkg/config"
	"github.com/MichaelFlanagan/SystemFifty/pkg/logging"
	"github.com/MichaelFlanagan/SystemFifty/pkg/store"
	"github.com/MichaelFlanagan/SystemFifty/pkg/uploads"

	"github.com/gin-gonic/gin"
)

func setupIntegrationServer(t *testing.T) (*gin.Engine, *config.Config) {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	cfg, err := config.Parse()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.AutoMigrate = true
	cfg.SeedSecret = "integration-secret"
	cfg.Upload.BaseDir = t.TempDir()
	db, err := initDB(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("initDB: %v", err)
	}
	sink := uploads.NewSink(uploads.NewLocal(cfg.Upload.BaseDir), uploads.Options{MaxBytes: cfg.Upload.MaxBytes, RequireImage: true})
	r := gin.New()
	if err := newServer(cfg, logging.Discard(), db, sink).setupRoutes(r); err != nil {
		t.Fatalf("routes: %v", err)
	}
	return r, cfg
}

func TestFullFlow(t *testing.T) {
	r, cfg := setupIntegrationServer(t)

	// 1. Seed (first run creates, later runs report already seeded)
	seedBody, _ := json.Marshal(map[string]string{"secret": cfg.SeedSecret})
	resp := performRequest(r, http.MethodPost, "/api/seed", bytes.NewBuffer(seedBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("seed failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"email": cfg.SeedAdminEmail, "password": cfg.SeedAdminPassword})
	resp = performRequest(r, http.MethodPost, "/api/auth/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Upload image (multipart)
	body, ct := multipartFile(t, "file", "roi.png", testPNG(t))
	resp = performRequest(r, http.MethodPost, "/api/upload", body, token, ct)
	if resp.Code != 200 {
		t.Fatalf("upload failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var up map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &up)

	// 4. Create pick with the uploaded image
	pickBody, _ := json.Marshal(map[string]any{"title": "Lakers -5.5", "content": "Take the Lakers", "imageUrl": up["url"]})
	resp = performRequest(r, http.MethodPost, "/api/picks", bytes.NewBuffer(pickBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create pick failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 5. Point the ROI image at the upload
	siBody, _ := json.Marshal(map[string]any{"roiUrl": up["url"]})
	resp = performRequest(r, http.MethodPatch, "/api/site-images", bytes.NewBuffer(siBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("update site images failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 6. Public reads
	for _, path := range []string{"/api/picks", "/api/site-images", up["url"]} {
		resp = performRequest(r, http.MethodGet, path, nil, "", "")
		if resp.Code != 200 {
			t.Fatalf("GET %s failed status=%d body=%s", path, resp.Code, resp.Body.String())
		}
	}

	// 7. Unauthorized mutation should be 401
	unauth := performRequest(r, http.MethodPost, "/api/picks", bytes.NewBuffer(pickBody), "", "application/json")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized create pick got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	cfg, err := config.Parse()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	db, err := store.Open(cfg.DatabaseDSN, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}
