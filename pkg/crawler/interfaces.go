package crawler

import (
	"context"

	"tweetvault/internal/downloader"
	"tweetvault/pkg/archive"
)

// PositionStore persists resume positions between runs
type PositionStore interface {
	Position(key string) (string, bool)
	SetPosition(key, position string) error
	ClearPosition(key string) error
}

// DocumentStore persists the archive document
type DocumentStore interface {
	Save(c *archive.Cache) error
}

// MediaQueue accepts media instructions for download
type MediaQueue interface {
	Submit(ctx context.Context, ins downloader.Instruction) error
	Drain(ctx context.Context) error
	Finish(ctx context.Context) error
}
