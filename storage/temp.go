// storage/temp.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BotCoder254/streamvibes/models"
)

// tempArea is the on-disk scratch directory shared by both backends.
type tempArea struct {
	dir string
}

func newTempArea(dir string) (*tempArea, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &tempArea{dir: dir}, nil
}

func (t *tempArea) TempFile(ext string) (string, error) {
	f, err := t.create(ext)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", models.Wrap("temp file", models.ErrStorage, err)
	}
	return name, nil
}

func (t *tempArea) create(ext string) (*os.File, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if !extPattern.MatchString(ext) {
		return nil, models.E("temp file", models.ErrValidation, "invalid extension %q", ext)
	}
	f, err := os.CreateTemp(t.dir, "asset-*."+ext)
	if err != nil {
		return nil, models.Wrap("temp file", models.ErrStorage, err)
	}
	return f, nil
}

func (t *tempArea) Stage(ctx context.Context, r io.Reader, ext string) (string, int64, error) {
	f, err := t.create(ext)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, models.Wrap("stage upload", models.ErrStorage, err)
	}
	return f.Name(), n, nil
}

func (t *tempArea) Discard(tempPath string) {
	if tempPath == "" || !t.owns(tempPath) {
		return
	}
	_ = os.Remove(tempPath)
}

func (t *tempArea) SweepTemp(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, models.Wrap("sweep temp", models.ErrStorage, err)
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(t.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// owns reports whether p is a direct child of the temp dir.
func (t *tempArea) owns(p string) bool {
	return filepath.Clean(filepath.Dir(p)) == filepath.Clean(t.dir)
}

// checkTemp verifies a commit source: a non-empty regular file in the temp area.
func (t *tempArea) checkTemp(tempPath string) error {
	if !t.owns(tempPath) {
		return models.E("commit", models.ErrStorage, "%s is not a temp file", tempPath)
	}
	info, err := os.Stat(tempPath)
	if err != nil {
		return models.Wrap("commit", models.ErrStorage, err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return models.E("commit", models.ErrProcessing, "output %s is empty", filepath.Base(tempPath))
	}
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
