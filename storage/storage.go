package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FolderPosts    = "posts"
	FolderProfiles = "profiles"
)

var ErrInvalidImage = errors.New("invalid image")

// maxSizes caps uploads per folder in bytes.
var maxSizes = map[string]int64{
	FolderPosts:    5 << 20,
	FolderProfiles: 2 << 20,
}

var allowedExt = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
}

// ImageStore persists uploaded images and returns the path or URL clients use
// to fetch them.
type ImageStore interface {
	Save(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, location string) error
}

// ValidateImage enforces the extension allow-list and the per-folder size
// limit.
func ValidateImage(folder string, fh *multipart.FileHeader) error {
	if fh == nil {
		return fmt.Errorf("%w: no file", ErrInvalidImage)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedExt[ext]; !ok {
		return fmt.Errorf("%w: only image files are allowed", ErrInvalidImage)
	}
	if limit, ok := maxSizes[folder]; ok && fh.Size > limit {
		return fmt.Errorf("%w: file exceeds %d MB", ErrInvalidImage, limit>>20)
	}
	return nil
}

// objectName builds a collision-free file name that keeps the original
// extension.
func objectName(fh *multipart.FileHeader, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), ext)
}
