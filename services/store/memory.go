package store

import (
	"context"
	"sync"

	"sjsage522/storyworker/config"
	"sjsage522/storyworker/internal/crawler"
)

// MemoryStore keeps rows in process. It backs dry runs and tests with the
// same write mode rules as PostgresStore.
type MemoryStore struct {
	mu        sync.Mutex
	overwrite bool
	stories   map[string]crawler.Story
	comments  map[string]crawler.Comment
}

// NewMemoryStore creates an empty store
func NewMemoryStore(mode string) *MemoryStore {
	return &MemoryStore{
		overwrite: mode == config.WriteModeOverwrite,
		stories:   make(map[string]crawler.Story),
		comments:  make(map[string]crawler.Comment),
	}
}

func (m *MemoryStore) SaveStory(ctx context.Context, story *crawler.Story) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.stories[story.ID]; exists && !m.overwrite {
		return false, nil
	}
	m.stories[story.ID] = *story
	return true, nil
}

func (m *MemoryStore) SaveComment(ctx context.Context, comment *crawler.Comment) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.comments[comment.ID]; exists && !m.overwrite {
		return false, nil
	}
	m.comments[comment.ID] = *comment
	return true, nil
}

func (m *MemoryStore) EnsureSchema(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Story returns the stored story with id
func (m *MemoryStore) Story(id string) (crawler.Story, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	story, ok := m.stories[id]
	return story, ok
}

// Comment returns the stored comment with id
func (m *MemoryStore) Comment(id string) (crawler.Comment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[id]
	return comment, ok
}

// Counts returns the number of stored stories and comments
func (m *MemoryStore) Counts() (stories, comments int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stories), len(m.comments)
}
