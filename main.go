package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MichaelFlanagan/SystemFifty/pkg/config"
	"github.com/MichaelFlanagan/SystemFifty/pkg/logging"
	"github.com/MichaelFlanagan/SystemFifty/pkg/store"
	"github.com/MichaelFlanagan/SystemFifty/pkg/uploads"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "systemfifty",
		Short:        "SystemFifty pick of the day API",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Migrate the database schema and exit",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create the admin identity if it is missing",
			RunE:  runSeed,
		},
	)
	return rootCmd
}

// bootstrap loads configuration and the process logger.
func bootstrap() (*config.Config, *logging.SlogLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if cfg.JWTSecret == config.DevJWTSecret {
		log.Warn(context.Background(), "JWT_SECRET is not set; using the development fallback")
	}
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDB(cfg, log)
	if err != nil {
		return err
	}
	backend, err := uploads.NewBackend(ctx, cfg)
	if err != nil {
		return err
	}
	sink := uploads.NewSink(backend, uploads.Options{
		MaxBytes:     cfg.Upload.MaxBytes,
		RequireImage: cfg.Upload.RequireImage,
	})

	srv := newServer(cfg, log, db, sink)
	if n, err := srv.store.Sessions.PurgeExpired(ctx, time.Now()); err != nil {
		log.Warn(ctx, "failed to purge expired sessions", "error", err)
	} else if n > 0 {
		log.Info(ctx, "purged expired sessions", "count", n)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	if err := srv.setupRoutes(r); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr, "uploads", backend.Kind(), "retention", cfg.Upload.Retention)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DatabaseDSN, false)
	if err != nil {
		return err
	}
	if err := store.Migrate(db); err != nil {
		return err
	}
	log.Info(cmd.Context(), "migrations completed")
	fmt.Fprintln(cmd.OutOrStdout(), "migration completed")
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	db, err := initDB(cfg, log)
	if err != nil {
		return err
	}
	admin, created, err := seedAdmin(cmd.Context(), store.NewUsers(db), cfg)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s already exists\n", admin.Email)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded admin %s\n%s\n", admin.Email, seedWarning)
	return nil
}
