package main

import (
	"context"

	"github.com/MichaelFlanagan/SystemFifty/pkg/config"
	"github.com/MichaelFlanagan/SystemFifty/pkg/logging"
	"github.com/MichaelFlanagan/SystemFifty/pkg/store"
	"github.com/MichaelFlanagan/SystemFifty/pkg/uploads"
)

// retainer applies UPLOAD_RETENTION to image URLs that a committed update or
// delete no longer points at.
type retainer struct {
	policy  string
	uploads *store.Uploads
	sink    *uploads.Sink
	log     logging.Logger
}

func newRetainer(policy string, u *store.Uploads, sink *uploads.Sink, log logging.Logger) *retainer {
	return &retainer{policy: policy, uploads: u, sink: sink, log: log}
}

// release deletes every path in replaced that is a stored upload and is no
// longer referenced. Failures are logged; the mutation has already committed.
func (r *retainer) release(ctx context.Context, replaced []string) {
	if r.policy != config.RetentionKeepLatest || len(replaced) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, p := range replaced {
		if _, ok := uploads.NameFromPath(p); !ok {
			continue
		}
		used, err := r.uploads.Referenced(ctx, p)
		if err != nil {
			r.log.Warn(ctx, "retention: reference check failed", "path", p, "error", err)
			continue
		}
		if used {
			continue
		}
		if err := r.sink.Remove(ctx, p); err != nil {
			r.log.Warn(ctx, "retention: delete failed", "path", p, "error", err)
			continue
		}
		if err := r.uploads.Forget(ctx, p); err != nil {
			r.log.Warn(ctx, "retention: forget failed", "path", p, "error", err)
			continue
		}
		r.log.Info(ctx, "retention: removed superseded upload", "path", p)
	}
}
