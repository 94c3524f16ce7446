package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/storyworker/config"
	"sjsage522/storyworker/helpers"
	"sjsage522/storyworker/internal"
	"sjsage522/storyworker/internal/crawler"
	"sjsage522/storyworker/logger"
	"sjsage522/storyworker/services/cache"
	"sjsage522/storyworker/services/publisher"
	"sjsage522/storyworker/services/store"
	"sjsage522/storyworker/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("phase", cfg.RunPhase).
		Str("cutoff", cfg.CutoffDate.Format("2006-01-02")).
		Strs("keywords", cfg.Keywords).
		Msg("Starting application")

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Close()

	pages, err := newPages(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start browser")
	}
	defer pages.Close()

	w := worker.NewWorker(
		crawler.NewListingCrawler(pages.listing, crawler.NewListingConfig(cfg)),
		crawler.NewDetailExtractor(pages.detail, crawler.NewDetailConfig(cfg)),
		deps.Store,
		deps.Publisher,
		deps.Marks,
		helpers.NewLogger(cfg.SkipLogFile),
		worker.NewOptions(cfg),
	)

	start := time.Now()
	summary, err := w.Run(ctx)
	log.Info().
		Int("discovered", summary.Discovered).
		Int("entries", summary.Entries).
		Int("stories", summary.Stories).
		Int("comments", summary.Comments).
		Int("skipped", summary.Skipped).
		Int("already_extracted", summary.Marked).
		Dur("elapsed", time.Since(start)).
		Msg("Run summary")

	if err != nil {
		if ctx.Err() != nil {
			log.Info().Msg("Received shutdown signal")
			return
		}
		log.Error().Err(err).Msg("Worker exited with error")
		pages.Close()
		deps.Close()
		os.Exit(1)
	}

	log.Info().Msg("DONE")
}

// browserPages holds the page used by each phase; they may be the same tab
type browserPages struct {
	listing crawler.Page
	detail  crawler.Page
	chrome  *crawler.ChromePage
}

func (p *browserPages) Close() {
	if p.chrome != nil {
		p.chrome.Close()
		p.chrome = nil
	}
}

// newPages starts Chrome only when a phase needs it
func newPages(ctx context.Context, cfg *config.Config) (*browserPages, error) {
	pages := &browserPages{}
	needsChrome := cfg.RunPhase != config.PhaseDiscover || cfg.ListingRenderer == config.RendererChrome

	if needsChrome {
		chrome, err := crawler.NewChromePage(ctx, cfg.Browser)
		if err != nil {
			return nil, err
		}
		pages.chrome = chrome
		pages.listing = chrome
		pages.detail = chrome
	}

	if cfg.ListingRenderer == config.RendererHTTP {
		pages.listing = crawler.NewStaticPage()
	}

	return pages, nil
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{}

	if cfg.RunPhase == config.PhaseDiscover {
		deps.Store = store.NewMemoryStore(cfg.WriteMode)
	} else if err := initializeStore(ctx, cfg, deps); err != nil {
		return nil, err
	}

	if cfg.RedisAddr != "" {
		redisPublisher, err := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Publisher = redisPublisher
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	if cfg.MemcacheAddr != "" {
		memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr, cfg.MemcacheNamespace)
		if err := memcacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unavailable, extraction marks disabled: %v", cfg.MemcacheAddr, err)
		} else {
			deps.Marks = cache.NewExtractionMarks(memcacheService, cfg.ExtractedTTL)
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	return deps, nil
}

func initializeStore(ctx context.Context, cfg *config.Config, deps *internal.Dependencies) error {
	if cfg.StoreBackend == config.StoreMemory {
		deps.Store = store.NewMemoryStore(cfg.WriteMode)
		logger.Warn("Using in-memory store, nothing will be persisted")
		return nil
	}

	db, err := store.Connect(cfg.Database)
	if err != nil {
		return err
	}
	postgresStore := store.NewPostgresStore(db, cfg.WriteMode)
	deps.Store = postgresStore

	if cfg.CreateSchema {
		if err := postgresStore.EnsureSchema(ctx); err != nil {
			postgresStore.Close()
			return err
		}
	}

	logger.Info("Connected to PostgreSQL at %s:%s/%s (mode: %s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, cfg.WriteMode)
	return nil
}
