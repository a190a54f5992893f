// storage/store.go
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/BotCoder254/streamvibes/models"
)

type Kind string

const (
	KindVideo     Kind = "videos"
	KindThumbnail Kind = "thumbnails"
)

// LocatorPrefix is the URL path every locator lives under.
const LocatorPrefix = "/uploads"

var (
	idPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)
	extPattern = regexp.MustCompile(`^[a-z0-9]{1,5}$`)
)

// AssetStore holds final assets and a local temp area for staging and
// in-progress outputs. Final assets are only ever created by Commit.
type AssetStore interface {
	// Stage copies r into a new temp file and returns its path and size.
	Stage(ctx context.Context, r io.Reader, ext string) (string, int64, error)
	// TempFile reserves a new empty temp file path with the given extension.
	TempFile(ext string) (string, error)
	// Discard removes a temp file. Missing files are ignored.
	Discard(tempPath string)
	// Commit moves a non-empty temp file to the ID-addressed final location,
	// replacing any previous asset there, and returns its locator.
	Commit(ctx context.Context, tempPath string, kind Kind, id, ext string) (string, error)
	Exists(ctx context.Context, locator string) (bool, error)
	// Remove deletes a final asset. Absent assets are not an error.
	Remove(ctx context.Context, locator string) error
	// SweepTemp removes temp files last modified before now-olderThan.
	SweepTemp(olderThan time.Duration) (int, error)
}

// Locator returns the relative URL path of an asset.
func Locator(kind Kind, id, ext string) (string, error) {
	if kind != KindVideo && kind != KindThumbnail {
		return "", models.E("locator", models.ErrValidation, "unknown asset kind %q", kind)
	}
	if !idPattern.MatchString(id) {
		return "", models.E("locator", models.ErrValidation, "invalid asset id %q", id)
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if !extPattern.MatchString(ext) {
		return "", models.E("locator", models.ErrValidation, "invalid asset extension %q", ext)
	}
	return path.Join(LocatorPrefix, string(kind), id+"."+ext), nil
}

// ParseLocator splits a locator into kind and file name, rejecting anything
// that does not have the shape Locator produces.
func ParseLocator(locator string) (Kind, string, error) {
	rest, ok := strings.CutPrefix(locator, LocatorPrefix+"/")
	if !ok {
		return "", "", fmt.Errorf("locator %q outside %s", locator, LocatorPrefix)
	}
	kind, name, ok := strings.Cut(rest, "/")
	if !ok || (Kind(kind) != KindVideo && Kind(kind) != KindThumbnail) {
		return "", "", fmt.Errorf("locator %q has unknown kind", locator)
	}
	id, ext, ok := strings.Cut(name, ".")
	if !ok || !idPattern.MatchString(id) || !extPattern.MatchString(ext) {
		return "", "", fmt.Errorf("locator %q has invalid name", locator)
	}
	return Kind(kind), name, nil
}
