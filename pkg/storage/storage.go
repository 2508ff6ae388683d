package storage

import (
	"context"
	"fmt"

	"tweetvault/pkg/config"
)

// ArtifactStore persists media files by name
type ArtifactStore interface {
	// Exists reports whether name was already stored
	Exists(ctx context.Context, name string) (bool, error)
	// Put stores data under name and returns the reference recorded in
	// the archive
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Ref returns the reference for an already stored name
	Ref(name string) string
}

// New builds the artifact store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig, mediaDir string) (ArtifactStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(mediaDir)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Prefix:    "media",
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
