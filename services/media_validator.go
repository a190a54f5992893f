// services/media_validator.go
package services

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/BotCoder254/streamvibes/config"
	"github.com/BotCoder254/streamvibes/models"
)

// MediaKind selects an allow-list.
type MediaKind int

const (
	MediaVideo MediaKind = iota
	MediaThumbnail
)

func (k MediaKind) String() string {
	if k == MediaThumbnail {
		return "thumbnail"
	}
	return "video"
}

// container names the format both the extension and the MIME type must agree on.
var (
	videoExtensions = map[string]string{
		".mp4": "mp4",
		".mov": "quicktime",
		".avi": "avi",
		".mkv": "matroska",
	}
	videoMIMEs = map[string]string{
		"video/mp4":        "mp4",
		"video/quicktime":  "quicktime",
		"video/x-msvideo":  "avi",
		"video/x-matroska": "matroska",
	}
	thumbnailExtensions = map[string]string{
		".jpg":  "jpeg",
		".jpeg": "jpeg",
		".png":  "png",
	}
	thumbnailMIMEs = map[string]string{
		"image/jpeg": "jpeg",
		"image/jpg":  "jpeg",
		"image/png":  "png",
	}
)

// MediaFile describes an upload before any byte of it is stored.
type MediaFile struct {
	FileName    string
	ContentType string
	Size        int64
}

// MediaValidator checks uploads against allow-lists and size ceilings.
type MediaValidator struct {
	maxVideo     int64
	maxThumbnail int64
}

func NewMediaValidator(cfg config.UploadConfig) *MediaValidator {
	return &MediaValidator{maxVideo: cfg.MaxVideoBytes, maxThumbnail: cfg.MaxThumbnailBytes}
}

// Validate returns the normalized extension (without dot) on success.
func (v *MediaValidator) Validate(f MediaFile, kind MediaKind) (string, error) {
	op := "validate " + kind.String()
	exts, mimes, limit := videoExtensions, videoMIMEs, v.maxVideo
	if kind == MediaThumbnail {
		exts, mimes, limit = thumbnailExtensions, thumbnailMIMEs, v.maxThumbnail
	}

	ext := strings.ToLower(filepath.Ext(f.FileName))
	byExt, ok := exts[ext]
	if !ok {
		return "", models.E(op, models.ErrUnsupportedMedia, "file extension %q is not allowed for a %s", ext, kind)
	}
	mediaType, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil {
		return "", models.E(op, models.ErrUnsupportedMedia, "invalid content type %q", f.ContentType)
	}
	byMIME, ok := mimes[strings.ToLower(mediaType)]
	if !ok {
		return "", models.E(op, models.ErrUnsupportedMedia, "content type %q is not allowed for a %s", mediaType, kind)
	}
	if byExt != byMIME {
		return "", models.E(op, models.ErrUnsupportedMedia, "extension %s does not match content type %s", ext, mediaType)
	}
	if f.Size <= 0 {
		return "", models.E(op, models.ErrValidation, "%s file is empty", kind)
	}
	if f.Size > limit {
		return "", models.E(op, models.ErrPayloadTooLarge, "%s exceeds the %d MB limit", kind, limit>>20)
	}
	return strings.TrimPrefix(ext, "."), nil
}
