// Package storage keeps uploaded student documents on the local disk or in
// an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("storage: object not found")

// Backend types.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// Storage stores opaque objects under slash separated keys such as
// "student_abc/doc_123.pdf".
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// Config selects and configures a backend.
type Config struct {
	Type               string
	LocalPath          string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string
}

// New returns the configured backend. Anything but "s3" means local disk.
func New(ctx context.Context, cfg Config) (Storage, error) {
	if strings.EqualFold(cfg.Type, TypeS3) {
		return NewS3(ctx, cfg)
	}
	return NewLocal(cfg.LocalPath)
}

// Key joins path elements into a clean object key. It rejects keys that
// would escape the storage root.
func Key(parts ...string) (string, error) {
	key := path.Clean(path.Join(parts...))
	if key == "." || key == "/" || strings.HasPrefix(key, "../") || key == ".." || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return key, nil
}

// ContentType guesses the MIME type of a stored document from its
// extension.
func ContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
