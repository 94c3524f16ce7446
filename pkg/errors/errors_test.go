package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestCrawlerError(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewNetwork("https://example.com", "connection dropped", cause)

	assert.Equal(t, "[network] https://example.com: connection dropped - boom", err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, err.IsRetryable())
	assert.True(t, err.IsEntryLocal())

	structural := NewStructural("123", "story title")
	assert.Equal(t, "[structural] 123: missing story title", structural.Error())
	assert.False(t, structural.IsRetryable())

	assert.False(t, NewStorage("story", "insert failed", cause).IsEntryLocal())
}

func TestClassifyNavigation(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, ClassifyNavigation(ctx, "u", nil))
	assert.Equal(t, ErrorTypeNavigationTimeout, TypeOf(ClassifyNavigation(ctx, "u", context.DeadlineExceeded)))
	assert.Equal(t, ErrorTypeNavigationTimeout, TypeOf(ClassifyNavigation(ctx, "u", timeoutErr{})))
	assert.Equal(t, ErrorTypeNetwork, TypeOf(ClassifyNavigation(ctx, "u", fmt.Errorf("page load error net::ERR_CONNECTION_CLOSED"))))

	readiness := NewReadinessTimeout("u", ".paginate", nil)
	assert.Same(t, readiness, ClassifyNavigation(ctx, "u", fmt.Errorf("wrapped: %w", readiness)))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, ClassifyNavigation(canceled, "u", fmt.Errorf("anything")), context.Canceled)
}

func TestHelpers(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewExhausted("u", "expansion", 3))

	assert.Equal(t, ErrorTypeExhausted, TypeOf(wrapped))
	assert.False(t, IsRetryable(wrapped))
	assert.True(t, IsEntryLocal(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(fmt.Errorf("plain")))
	assert.False(t, IsEntryLocal(fmt.Errorf("plain")))
}
