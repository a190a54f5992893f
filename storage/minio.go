// storage/minio.go
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BotCoder254/streamvibes/models"
	"github.com/minio/minio-go/v7"
)

var contentTypes = map[string]string{
	"mp4":  "video/mp4",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

var _ AssetStore = (*MinIOStore)(nil)

// MinIOStore uploads committed assets to a bucket under <kind>/<id>.<ext>.
// Staging still happens on local disk because ffmpeg needs file paths.
type MinIOStore struct {
	*tempArea
	client *minio.Client
	bucket string
}

func NewMinIOStore(client *minio.Client, bucket, tempDir string) (*MinIOStore, error) {
	tmp, err := newTempArea(tempDir)
	if err != nil {
		return nil, err
	}
	return &MinIOStore{tempArea: tmp, client: client, bucket: bucket}, nil
}

func objectKey(locator string) (string, error) {
	kind, name, err := ParseLocator(locator)
	if err != nil {
		return "", models.Wrap("resolve locator", models.ErrValidation, err)
	}
	return string(kind) + "/" + name, nil
}

func (s *MinIOStore) Commit(ctx context.Context, tempPath string, kind Kind, id, ext string) (string, error) {
	locator, err := Locator(kind, id, ext)
	if err != nil {
		return "", err
	}
	if err := s.checkTemp(tempPath); err != nil {
		return "", err
	}
	key, _ := objectKey(locator)
	ct := contentTypes[strings.TrimPrefix(filepath.Ext(locator), ".")]
	if ct == "" {
		ct = "application/octet-stream"
	}
	// PutObject makes the object visible only once the upload completes.
	if _, err := s.client.FPutObject(ctx, s.bucket, key, tempPath, minio.PutObjectOptions{ContentType: ct}); err != nil {
		return "", models.Wrap("commit", models.ErrStorage, err)
	}
	_ = os.Remove(tempPath)
	return locator, nil
}

func (s *MinIOStore) Exists(ctx context.Context, locator string) (bool, error) {
	key, err := objectKey(locator)
	if err != nil {
		return false, err
	}
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, models.Wrap("stat asset", models.ErrStorage, err)
	}
	return info.Size > 0, nil
}

// Open streams a committed asset. The caller closes the reader.
func (s *MinIOStore) Open(ctx context.Context, locator string) (io.ReadCloser, int64, string, error) {
	key, err := objectKey(locator)
	if err != nil {
		return nil, 0, "", err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, "", models.Wrap("open asset", models.ErrStorage, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, 0, "", models.E("open asset", models.ErrNotFound, "asset %s not found", locator)
		}
		return nil, 0, "", models.Wrap("open asset", models.ErrStorage, err)
	}
	return obj, info.Size, info.ContentType, nil
}

func (s *MinIOStore) Remove(ctx context.Context, locator string) error {
	if locator == "" {
		return nil
	}
	key, err := objectKey(locator)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isNoSuchKey(err) {
		return models.Wrap("remove asset", models.ErrStorage, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
