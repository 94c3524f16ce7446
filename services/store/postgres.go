package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sjsage522/storyworker/config"
	"sjsage522/storyworker/internal/crawler"
	crawlerrors "sjsage522/storyworker/pkg/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections
	DefaultMaxOpenConns = 4
	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 2
	// DefaultConnMaxLifetime is the default maximum connection lifetime
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for ping operations
	DefaultPingTimeout = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS story (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	article TEXT,
	tags TEXT,
	posted_by TEXT,
	added_time TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	story_id TEXT NOT NULL,
	comment TEXT NOT NULL,
	commented_by TEXT,
	score INTEGER NOT NULL,
	insightful BOOLEAN NOT NULL DEFAULT FALSE,
	informative BOOLEAN NOT NULL DEFAULT FALSE,
	interesting BOOLEAN NOT NULL DEFAULT FALSE,
	funny BOOLEAN NOT NULL DEFAULT FALSE
);
`

const insertStoryIfAbsent = `
INSERT INTO story (id, url, title, article, tags, posted_by, added_time)
SELECT sub_query.* FROM (
	SELECT $1::text AS id, $2::text AS url, $3::text AS title, $4::text AS article,
		$5::text AS tags, $6::text AS posted_by, $7::timestamp AS added_time
) sub_query
LEFT JOIN story s ON sub_query.id = s.id
WHERE s.id IS NULL`

const upsertStory = `
INSERT INTO story (id, url, title, article, tags, posted_by, added_time)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	url = EXCLUDED.url,
	title = EXCLUDED.title,
	article = EXCLUDED.article,
	tags = EXCLUDED.tags,
	posted_by = EXCLUDED.posted_by,
	added_time = EXCLUDED.added_time`

const insertCommentIfAbsent = `
INSERT INTO comments (id, story_id, comment, commented_by, score, insightful, informative, interesting, funny)
SELECT sub_query.* FROM (
	SELECT $1::text AS id, $2::text AS story_id, $3::text AS comment, $4::text AS commented_by,
		$5::integer AS score, $6::boolean AS insightful, $7::boolean AS informative,
		$8::boolean AS interesting, $9::boolean AS funny
) sub_query
LEFT JOIN comments c ON sub_query.id = c.id
WHERE c.id IS NULL`

const upsertComment = `
INSERT INTO comments (id, story_id, comment, commented_by, score, insightful, informative, interesting, funny)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	story_id = EXCLUDED.story_id,
	comment = EXCLUDED.comment,
	commented_by = EXCLUDED.commented_by,
	score = EXCLUDED.score,
	insightful = EXCLUDED.insightful,
	informative = EXCLUDED.informative,
	interesting = EXCLUDED.interesting,
	funny = EXCLUDED.funny`

// Connect opens and verifies a PostgreSQL connection pool
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// PostgresStore implements Store on the story and comments tables
type PostgresStore struct {
	db        *sqlx.DB
	overwrite bool
}

// NewPostgresStore wraps db; mode is one of the config write modes
func NewPostgresStore(db *sqlx.DB, mode string) *PostgresStore {
	return &PostgresStore{
		db:        db,
		overwrite: mode == config.WriteModeOverwrite,
	}
}

// EnsureSchema creates the story and comments tables
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return crawlerrors.NewStorage("schema", "failed to create tables", err)
	}
	return nil
}

// SaveStory writes story. In insert-if-absent mode an existing row is kept
// untouched and false is returned.
func (s *PostgresStore) SaveStory(ctx context.Context, story *crawler.Story) (bool, error) {
	query := insertStoryIfAbsent
	if s.overwrite {
		query = upsertStory
	}

	result, err := s.db.ExecContext(ctx, query,
		story.ID,
		story.URL,
		story.Title,
		nullString(story.Body),
		joinTags(story.Tags),
		story.Author,
		story.PublishedAt,
	)
	if err != nil {
		return false, crawlerrors.NewStorage(story.ID, "failed to save story", err)
	}
	return written(story.ID, result)
}

// SaveComment writes comment with the same write mode as stories
func (s *PostgresStore) SaveComment(ctx context.Context, comment *crawler.Comment) (bool, error) {
	query := insertCommentIfAbsent
	if s.overwrite {
		query = upsertComment
	}

	result, err := s.db.ExecContext(ctx, query,
		comment.ID,
		comment.StoryID,
		comment.Body,
		comment.Author,
		comment.Score,
		comment.Flags.Insightful,
		comment.Flags.Informative,
		comment.Flags.Interesting,
		comment.Flags.Funny,
	)
	if err != nil {
		return false, crawlerrors.NewStorage(comment.ID, "failed to save comment", err)
	}
	return written(comment.ID, result)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func written(target string, result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, crawlerrors.NewStorage(target, "failed to read affected rows", err)
	}
	return rows > 0, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// joinTags stores tags comma separated; no tags is NULL
func joinTags(tags []string) sql.NullString {
	if len(tags) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.Join(tags, ", "), Valid: true}
}
