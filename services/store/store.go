package store

import (
	"context"

	"sjsage522/storyworker/internal/crawler"
)

// Store persists extracted stories and comments
type Store interface {
	// SaveStory writes story and reports whether a row was written
	SaveStory(ctx context.Context, story *crawler.Story) (bool, error)

	// SaveComment writes comment and reports whether a row was written
	SaveComment(ctx context.Context, comment *crawler.Comment) (bool, error)

	// EnsureSchema creates the tables when they do not exist
	EnsureSchema(ctx context.Context) error

	// Close releases the underlying connection
	Close() error
}
