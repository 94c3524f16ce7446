package publisher

import "context"

// Event keys
const (
	KeyStory   = "story"
	KeyComment = "comment"
)

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message under key to one of the streams
	Publish(ctx context.Context, key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}
