package uploads

import (
	"context"
	"fmt"

	"github.com/MichaelFlanagan/SystemFifty/pkg/config"
)

// NewBackend builds the backend selected by cfg.Upload.Backend.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Upload.Backend {
	case config.BackendLocal:
		l := NewLocal(cfg.Upload.BaseDir)
		if err := l.EnsureDir(); err != nil {
			return nil, err
		}
		return l, nil
	case config.BackendS3:
		b, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 backend: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Upload.Backend)
	}
}
