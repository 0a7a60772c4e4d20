package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// PublicPrefix is the URL prefix local uploads are served under.
const PublicPrefix = "/uploads"

// LocalStore keeps images on disk below Root, one sub-directory per folder.
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	for _, folder := range []string{FolderPosts, FolderProfiles} {
		if err := os.MkdirAll(filepath.Join(root, folder), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &LocalStore{Root: root}, nil
}

func (s *LocalStore) Save(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	if err := ValidateImage(folder, fh); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := objectName(fh, time.Now())
	dst, err := os.Create(filepath.Join(s.Root, folder, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}

	return path.Join(PublicPrefix, folder, name), nil
}

// Delete removes a previously saved image. Locations outside the upload
// prefix and files that are already gone are ignored.
func (s *LocalStore) Delete(ctx context.Context, location string) error {
	rel, ok := strings.CutPrefix(location, PublicPrefix+"/")
	if !ok {
		return nil
	}
	rel = path.Clean("/" + rel)[1:]
	if rel == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
