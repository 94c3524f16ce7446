package worker

import (
	"context"
	"fmt"
	"time"

	"sjsage522/storyworker/config"
	"sjsage522/storyworker/helpers"
	"sjsage522/storyworker/internal/crawler"
	"sjsage522/storyworker/logger"
	crawlerrors "sjsage522/storyworker/pkg/errors"
	"sjsage522/storyworker/services/cache"
	"sjsage522/storyworker/services/publisher"
	"sjsage522/storyworker/services/store"
)

// Discoverer builds the catalog of matching stories
type Discoverer interface {
	Crawl(ctx context.Context, cutoff time.Time, keywords []string) (*crawler.Catalog, error)
}

// Extractor turns one catalog entry into a story and its comments
type Extractor interface {
	Extract(ctx context.Context, entry crawler.CatalogEntry) (*crawler.Story, []crawler.Comment, error)
}

// Options controls which phases run and how
type Options struct {
	Phase       string
	CatalogFile string
	Cutoff      time.Time
	Keywords    []string
	EntryDelay  time.Duration
}

// NewOptions builds worker options from the application config
func NewOptions(cfg *config.Config) Options {
	return Options{
		Phase:       cfg.RunPhase,
		CatalogFile: cfg.CatalogFile,
		Cutoff:      cfg.CutoffDate,
		Keywords:    cfg.Keywords,
		EntryDelay:  cfg.EntryDelay,
	}
}

// Summary counts what a run did
type Summary struct {
	Discovered int
	Entries    int
	Stories    int
	Comments   int
	Skipped    int
	Marked     int
}

// Worker runs discovery and extraction in sequence
type Worker struct {
	discoverer Discoverer
	extractor  Extractor
	store      store.Store
	publisher  publisher.Publisher
	marks      *cache.ExtractionMarks
	logger     helpers.LoggerInterface
	opts       Options
	log        *logger.Logger
	sleepFunc  func(ctx context.Context, d time.Duration) error
}

// NewWorker creates a new worker. pub and marks may be nil.
func NewWorker(
	discoverer Discoverer,
	extractor Extractor,
	st store.Store,
	pub publisher.Publisher,
	marks *cache.ExtractionMarks,
	skipLogger helpers.LoggerInterface,
	opts Options,
) *Worker {
	return &Worker{
		discoverer: discoverer,
		extractor:  extractor,
		store:      st,
		publisher:  pub,
		marks:      marks,
		logger:     skipLogger,
		opts:       opts,
		log:        logger.ForComponent("worker"),
		sleepFunc:  helpers.SleepContext,
	}
}

// Run executes the configured phases. Discovery writes the catalog snapshot
// and extraction reads it back, so either phase can run on its own.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	if w.opts.Phase == config.PhaseDiscover || w.opts.Phase == config.PhaseAll {
		catalog, err := w.Discover(ctx)
		if catalog != nil {
			summary.Discovered = catalog.Len()
		}
		if err != nil {
			return summary, err
		}
	}

	if w.opts.Phase == config.PhaseExtract || w.opts.Phase == config.PhaseAll {
		catalog, err := crawler.LoadCatalog(w.opts.CatalogFile)
		if err != nil {
			return summary, crawlerrors.NewConfiguration("failed to load catalog "+w.opts.CatalogFile, err)
		}

		extracted, err := w.Extract(ctx, catalog)
		extracted.Discovered = summary.Discovered
		return extracted, err
	}

	return summary, nil
}

// Discover crawls the listing and saves the snapshot. A partial catalog is
// saved too when the crawl fails, so extraction can still be run from it.
func (w *Worker) Discover(ctx context.Context) (*crawler.Catalog, error) {
	w.log.Info().Time("cutoff", w.opts.Cutoff).Strs("keywords", w.opts.Keywords).Msg("Discovery started")

	catalog, crawlErr := w.discoverer.Crawl(ctx, w.opts.Cutoff, w.opts.Keywords)
	if catalog == nil {
		return nil, crawlErr
	}

	if err := crawler.SaveCatalog(w.opts.CatalogFile, catalog); err != nil {
		return catalog, crawlerrors.NewStorage(w.opts.CatalogFile, "failed to save catalog", err)
	}
	w.log.Info().Str("file", w.opts.CatalogFile).Int("stories", catalog.Len()).Msg("Catalog saved")

	if crawlErr != nil {
		return catalog, fmt.Errorf("discovery stopped early: %w", crawlErr)
	}
	return catalog, nil
}

// Extract processes the catalog in order, one entry at a time. Entry-local
// failures are logged and skipped; storage failures and cancellation end the run.
func (w *Worker) Extract(ctx context.Context, catalog *crawler.Catalog) (Summary, error) {
	entries := catalog.Entries()
	summary := Summary{Entries: len(entries)}

	for i, entry := range entries {
		if i > 0 {
			if err := w.sleepFunc(ctx, w.opts.EntryDelay); err != nil {
				return summary, err
			}
		}
		w.logger.LogInfo("Processing url %d of %d", i+1, len(entries))

		if w.recentlyExtracted(entry) {
			summary.Marked++
			continue
		}

		story, comments, err := w.extractor.Extract(ctx, entry)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			if crawlerrors.IsEntryLocal(err) {
				w.logger.LogSkip(entry.URL, err)
				summary.Skipped++
				continue
			}
			return summary, err
		}

		if err := w.persist(ctx, story, comments, &summary); err != nil {
			return summary, err
		}
		w.mark(entry)
	}

	w.trimStreams(ctx)
	return summary, nil
}

// persist saves the story, then its comments, publishing only rows that were written
func (w *Worker) persist(ctx context.Context, story *crawler.Story, comments []crawler.Comment, summary *Summary) error {
	inserted, err := w.store.SaveStory(ctx, story)
	if err != nil {
		return err
	}
	if inserted {
		summary.Stories++
		w.publish(story.ID, func() error {
			return publisher.PublishStory(ctx, w.publisher, story, len(comments))
		})
	}

	for i := range comments {
		comment := &comments[i]
		inserted, err := w.store.SaveComment(ctx, comment)
		if err != nil {
			return err
		}
		if inserted {
			summary.Comments++
			w.publish(comment.ID, func() error {
				return publisher.PublishComment(ctx, w.publisher, comment)
			})
		}
	}

	w.log.Info().Str("id", story.ID).Int("comments", len(comments)).Bool("new", inserted).Msg("Story saved")
	return nil
}

func (w *Worker) publish(id string, send func() error) {
	if w.publisher == nil {
		return
	}
	if err := send(); err != nil {
		w.log.Warn().Err(err).Str("id", id).Msg("Failed to publish event")
	}
}

func (w *Worker) trimStreams(ctx context.Context) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.TrimStreams(ctx); err != nil {
		w.log.Warn().Err(err).Msg("Failed to trim streams")
	}
}

func (w *Worker) recentlyExtracted(entry crawler.CatalogEntry) bool {
	if w.marks == nil {
		return false
	}
	extracted, err := w.marks.Extracted(entry.ID)
	if err != nil {
		w.log.Warn().Err(err).Str("id", entry.ID).Msg("Extraction mark lookup failed")
		return false
	}
	if extracted {
		w.log.Info().Str("id", entry.ID).Msg("Recently extracted, skipping")
	}
	return extracted
}

func (w *Worker) mark(entry crawler.CatalogEntry) {
	if w.marks == nil {
		return
	}
	if err := w.marks.Mark(entry.ID); err != nil {
		w.log.Warn().Err(err).Str("id", entry.ID).Msg("Failed to set extraction mark")
	}
}
