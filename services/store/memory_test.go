package store

import (
	"context"
	"testing"

	"sjsage522/storyworker/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreKeepsFirstSeen(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(config.WriteModeInsertIfAbsent)

	first := testStory()
	written, err := s.SaveStory(ctx, first)
	require.NoError(t, err)
	assert.True(t, written)

	second := testStory()
	second.Title = "Virus Spreads Further"
	written, err = s.SaveStory(ctx, second)
	require.NoError(t, err)
	assert.False(t, written)

	stored, ok := s.Story("123")
	require.True(t, ok)
	assert.Equal(t, "Virus Spreads", stored.Title)

	comment := testComment()
	written, err = s.SaveComment(ctx, comment)
	require.NoError(t, err)
	assert.True(t, written)
	comment.Score = 1
	written, err = s.SaveComment(ctx, comment)
	require.NoError(t, err)
	assert.False(t, written)

	storedComment, ok := s.Comment("900")
	require.True(t, ok)
	assert.Equal(t, 5, storedComment.Score)

	stories, comments := s.Counts()
	assert.Equal(t, 1, stories)
	assert.Equal(t, 1, comments)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(config.WriteModeOverwrite)

	_, err := s.SaveStory(ctx, testStory())
	require.NoError(t, err)

	updated := testStory()
	updated.Title = "Virus Spreads Further"
	written, err := s.SaveStory(ctx, updated)
	require.NoError(t, err)
	assert.True(t, written)

	stored, _ := s.Story("123")
	assert.Equal(t, "Virus Spreads Further", stored.Title)
}

func TestMemoryStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore(config.WriteModeInsertIfAbsent)
	_, err := s.SaveStory(ctx, testStory())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, s.Close())
}
