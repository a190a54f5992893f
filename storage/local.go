// storage/local.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BotCoder254/streamvibes/models"
)

var _ AssetStore = (*LocalStore)(nil)

// LocalStore keeps final assets under <root>/uploads and stages under
// <root>/tmp. Both live on the same filesystem so Commit is a rename.
type LocalStore struct {
	*tempArea
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	for _, kind := range []Kind{KindVideo, KindThumbnail} {
		if err := os.MkdirAll(filepath.Join(abs, "uploads", string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", kind, err)
		}
	}
	tmp, err := newTempArea(filepath.Join(abs, "tmp"))
	if err != nil {
		return nil, err
	}
	return &LocalStore{tempArea: tmp, root: abs}, nil
}

// UploadsDir is the directory served under LocatorPrefix.
func (s *LocalStore) UploadsDir() string {
	return filepath.Join(s.root, "uploads")
}

// Path resolves a locator to its file on disk.
func (s *LocalStore) Path(locator string) (string, error) {
	kind, name, err := ParseLocator(locator)
	if err != nil {
		return "", models.Wrap("resolve locator", models.ErrValidation, err)
	}
	return filepath.Join(s.root, "uploads", string(kind), name), nil
}

func (s *LocalStore) Commit(ctx context.Context, tempPath string, kind Kind, id, ext string) (string, error) {
	locator, err := Locator(kind, id, ext)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", models.Wrap("commit", models.ErrStorage, err)
	}
	if err := s.checkTemp(tempPath); err != nil {
		return "", err
	}
	dest, _ := s.Path(locator)
	if err := os.Chmod(tempPath, 0o644); err != nil {
		return "", models.Wrap("commit", models.ErrStorage, err)
	}
	// rename replaces an existing asset atomically
	if err := os.Rename(tempPath, dest); err != nil {
		return "", models.Wrap("commit", models.ErrStorage, err)
	}
	return locator, nil
}

func (s *LocalStore) Exists(ctx context.Context, locator string) (bool, error) {
	p, err := s.Path(locator)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, models.Wrap("stat asset", models.ErrStorage, err)
	}
	return info.Size() > 0, nil
}

func (s *LocalStore) Remove(ctx context.Context, locator string) error {
	if locator == "" {
		return nil
	}
	p, err := s.Path(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return models.Wrap("remove asset", models.ErrStorage, err)
	}
	return nil
}
