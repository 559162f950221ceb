package uploads

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"
)

// Local stores files in a directory on disk.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) Kind() string { return "local" }

// Dir is the base directory.
func (l *Local) Dir() string { return l.dir }

// EnsureDir creates the base directory. An existing directory is fine.
func (l *Local) EnsureDir() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return apperr.Storage("failed to create upload directory", err)
	}
	return nil
}

func (l *Local) Put(ctx context.Context, name, contentType string, data []byte) error {
	if err := l.EnsureDir(); err != nil {
		return err
	}
	full := filepath.Join(l.dir, name)
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return apperr.Storage("failed to save file", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return apperr.Storage("failed to save file", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return apperr.Storage("failed to save file", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return apperr.Storage("failed to save file", err)
	}
	return nil
}

func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, *ObjectInfo, error) {
	f, err := os.Open(filepath.Join(l.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, apperr.NotFound("file not found")
		}
		return nil, nil, apperr.Storage("failed to open file", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, apperr.Storage("failed to open file", err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, nil, apperr.NotFound("file not found")
	}
	ct, err := sniff(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, apperr.Storage("failed to read file", err)
	}
	return f, &ObjectInfo{Size: st.Size(), ContentType: ct, ModTime: st.ModTime()}, nil
}

// sniff detects the content type from the head of f and rewinds it. The
// file extension is chosen by the uploader and is never trusted.
func sniff(f *os.File) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// Names lists the stored file names, skipping directories and dotfiles.
func (l *Local) Names() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperr.Storage("failed to list upload directory", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// Delete removes name. A missing file is not an error.
func (l *Local) Delete(ctx context.Context, name string) error {
	if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Storage("failed to delete file", err)
	}
	return nil
}
