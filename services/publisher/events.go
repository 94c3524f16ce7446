package publisher

import (
	"context"
	"encoding/json"
	"time"

	"sjsage522/storyworker/internal/crawler"
)

// StoryEvent is the payload published for a newly stored story
type StoryEvent struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Tags        []string  `json:"tags,omitempty"`
	Author      string    `json:"posted_by"`
	PublishedAt time.Time `json:"added_time"`
	Comments    int       `json:"comments"`
}

// CommentEvent is the payload published for a newly stored comment
type CommentEvent struct {
	ID          string `json:"id"`
	StoryID     string `json:"story_id"`
	Author      string `json:"commented_by"`
	Score       int    `json:"score"`
	Insightful  bool   `json:"insightful"`
	Informative bool   `json:"informative"`
	Interesting bool   `json:"interesting"`
	Funny       bool   `json:"funny"`
}

// PublishStory publishes a story event. comments is the number of comments
// extracted with it.
func PublishStory(ctx context.Context, p Publisher, story *crawler.Story, comments int) error {
	data, err := json.Marshal(StoryEvent{
		ID:          story.ID,
		URL:         story.URL,
		Title:       story.Title,
		Tags:        story.Tags,
		Author:      story.Author,
		PublishedAt: story.PublishedAt,
		Comments:    comments,
	})
	if err != nil {
		return err
	}
	return p.Publish(ctx, KeyStory, data)
}

// PublishComment publishes a comment event
func PublishComment(ctx context.Context, p Publisher, comment *crawler.Comment) error {
	data, err := json.Marshal(CommentEvent{
		ID:          comment.ID,
		StoryID:     comment.StoryID,
		Author:      comment.Author,
		Score:       comment.Score,
		Insightful:  comment.Flags.Insightful,
		Informative: comment.Flags.Informative,
		Interesting: comment.Flags.Interesting,
		Funny:       comment.Flags.Funny,
	})
	if err != nil {
		return err
	}
	return p.Publish(ctx, KeyComment, data)
}
