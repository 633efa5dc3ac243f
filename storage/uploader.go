// Package storage uploads user-supplied files (avatars, game art) to object storage.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// ObjectKey builds a collision-free key such as "avatars/42/<uuid>.png".
func ObjectKey(prefix, owner, ext string) string {
	parts := []string{strings.Trim(prefix, "/")}
	if owner != "" {
		parts = append(parts, owner)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	parts = append(parts, uuid.NewString()+ext)
	return strings.Join(parts, "/")
}
