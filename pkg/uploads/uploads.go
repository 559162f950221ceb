// Package uploads stores uploaded images under collision-resistant names and
// serves them back by name.
package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// PathPrefix is the public prefix of every stored file's retrieval path.
const PathPrefix = "/uploads/"

// Backend persists bytes under a name. Put must fail rather than overwrite an
// existing object.
type Backend interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Open(ctx context.Context, name string) (io.ReadCloser, *ObjectInfo, error)
	Delete(ctx context.Context, name string) error
	Kind() string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// StoredFile is the result of a successful Store.
type StoredFile struct {
	Name         string
	Path         string
	OriginalName string
	ContentType  string
	Size         int64
}

type Options struct {
	MaxBytes     int64
	RequireImage bool
}

type Sink struct {
	backend Backend
	opts    Options
	now     func() time.Time
	rand    func() int64
}

func NewSink(b Backend, opts Options) *Sink {
	return &Sink{
		backend: b,
		opts:    opts,
		now:     time.Now,
		rand:    func() int64 { return rand.Int64N(1_000_000_000) },
	}
}

// Backend returns the storage backend.
func (s *Sink) Backend() Backend { return s.backend }

// GenerateName builds "<unixMillis>-<n>-<original>".
func GenerateName(now time.Time, n int64, original string) string {
	return fmt.Sprintf("%d-%d-%s", now.UnixMilli(), n, SanitizeName(original))
}

// SanitizeName reduces a client-supplied filename to a safe base name.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

// PathFor returns the public retrieval path for a stored name.
func PathFor(name string) string { return PathPrefix + name }

// NameFromPath extracts the stored name from a retrieval path.
func NameFromPath(p string) (string, bool) {
	if !strings.HasPrefix(p, PathPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(p, PathPrefix)
	return name, ValidName(name)
}

// OriginalFromName recovers the sanitized original name from a generated
// name. Names that do not follow the generated layout are returned as is.
func OriginalFromName(name string) string {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) != 3 || !digits(parts[0]) || !digits(parts[1]) {
		return name
	}
	return parts[2]
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidName reports whether name can be a stored object name.
func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Store validates and persists the payload read from r. The content type is
// always sniffed from the bytes; the client's claim is not recorded.
func (s *Sink) Store(ctx context.Context, originalName string, r io.Reader) (*StoredFile, error) {
	if r == nil {
		return nil, apperr.Validation("No file provided")
	}
	data, err := io.ReadAll(io.LimitReader(r, s.opts.MaxBytes+1))
	if err != nil {
		return nil, apperr.Storage("failed to read upload", err)
	}
	if len(data) == 0 {
		return nil, apperr.Validation("file is empty")
	}
	if int64(len(data)) > s.opts.MaxBytes {
		return nil, apperr.Validation(fmt.Sprintf("file too large (max %d bytes)", s.opts.MaxBytes))
	}
	if s.opts.RequireImage {
		if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
			return nil, apperr.Validation("file is not a supported image")
		}
	}
	contentType := http.DetectContentType(data)

	name := GenerateName(s.now(), s.rand(), originalName)
	if err := s.backend.Put(ctx, name, contentType, data); err != nil {
		return nil, err
	}
	return &StoredFile{
		Name:         name,
		Path:         PathFor(name),
		OriginalName: originalName,
		ContentType:  contentType,
		Size:         int64(len(data)),
	}, nil
}

// Open returns the stored object called name.
func (s *Sink) Open(ctx context.Context, name string) (io.ReadCloser, *ObjectInfo, error) {
	if !ValidName(name) {
		return nil, nil, apperr.NotFound("file not found")
	}
	return s.backend.Open(ctx, name)
}

// Remove deletes the object behind a retrieval path. Paths outside
// PathPrefix are ignored.
func (s *Sink) Remove(ctx context.Context, p string) error {
	name, ok := NameFromPath(p)
	if !ok {
		return nil
	}
	return s.backend.Delete(ctx, name)
}
