package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Run phases
const (
	PhaseDiscover = "discover"
	PhaseExtract  = "extract"
	PhaseAll      = "all"
)

// Store write modes
const (
	WriteModeInsertIfAbsent = "insert-if-absent"
	WriteModeOverwrite      = "overwrite"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Listing renderers
const (
	RendererChrome = "chrome"
	RendererHTTP   = "http"
)

// BrowserConfig holds the Chrome startup toggles
type BrowserConfig struct {
	Headless             bool
	Incognito            bool
	DisableSandbox       bool
	DisableExtensions    bool
	DisableNotifications bool
	DisableDevShmUsage   bool
	ExecPath             string
}

// DatabaseConfig holds the PostgreSQL connection parameters
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Config represents the application configuration
type Config struct {
	// Database configuration
	StoreBackend string
	Database     DatabaseConfig
	WriteMode    string
	CreateSchema bool

	// Redis configuration, empty address disables event publishing
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration, empty address disables extraction marks
	MemcacheAddr      string
	MemcacheNamespace string
	ExtractedTTL      time.Duration

	// Files
	CatalogFile string
	SkipLogFile string

	// Discovery configuration
	ListingURLTemplate string
	ListingRenderer    string
	Keywords           []string
	CutoffDate         time.Time

	// Timing
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	PageDelay         time.Duration
	EntryDelay        time.Duration
	ExpansionDelay    time.Duration

	// Loop guards, zero means unbounded
	MaxPageAttempts    int
	MaxExpansionRounds int
	ExpansionTolerance int

	Browser BrowserConfig

	RunPhase string

	// Environment
	Environment string

	// values that could not be parsed, reported by Validate
	loadErrs []error
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	var errs []error
	redisDB := getInt("REDIS_DB", "0", &errs)
	redisStreamCount := getInt("REDIS_STREAM_COUNT", "1", &errs)
	redisStreamMaxLength := getInt("REDIS_STREAM_MAX_LENGTH", "10000", &errs)
	cutoff, err := time.Parse("2006-01-02", getEnv("CUTOFF_DATE", "2020-01-19"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid CUTOFF_DATE %q: %w", os.Getenv("CUTOFF_DATE"), err))
	}

	return &Config{
		StoreBackend: getEnv("STORE_BACKEND", StorePostgres),
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "postgres"),
			Password: getEnv("DATABASE_PASSWORD", ""),
			Name:     getEnv("DATABASE_NAME", "coronavirus"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
		WriteMode:            getEnv("STORE_WRITE_MODE", WriteModeInsertIfAbsent),
		CreateSchema:         getBool("STORE_CREATE_SCHEMA", true),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "stories"),
		RedisStreamCount:     redisStreamCount,
		RedisStreamMaxLength: redisStreamMaxLength,
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		MemcacheNamespace:    getEnv("MEMCACHE_NAMESPACE", "storyworker:"),
		ExtractedTTL:         getDuration("EXTRACTED_TTL_HOURS", "24", time.Hour, &errs),
		CatalogFile:          getEnv("CATALOG_FILE", "slashdot_urls.json"),
		SkipLogFile:          getEnv("SKIP_LOG_FILE", "skipped.log"),
		ListingURLTemplate:   getEnv("LISTING_URL_TEMPLATE", "https://slashdot.org/?page=%d"),
		ListingRenderer:      getEnv("LISTING_RENDERER", RendererChrome),
		Keywords:             splitList(getEnv("KEYWORDS", "covid,coronavirus,wuhan,ncov")),
		CutoffDate:           cutoff,
		NavigationTimeout:    getDuration("NAVIGATION_TIMEOUT_SECONDS", "40", time.Second, &errs),
		WaitTimeout:          getDuration("WAIT_TIMEOUT_SECONDS", "40", time.Second, &errs),
		PageDelay:            getDuration("PAGE_DELAY_SECONDS", "4", time.Second, &errs),
		EntryDelay:           getDuration("ENTRY_DELAY_SECONDS", "3", time.Second, &errs),
		ExpansionDelay:       getDuration("EXPANSION_DELAY_MS", "1000", time.Millisecond, &errs),
		MaxPageAttempts:      getInt("MAX_PAGE_ATTEMPTS", "10", &errs),
		MaxExpansionRounds:   getInt("MAX_EXPANSION_ROUNDS", "500", &errs),
		ExpansionTolerance:   getInt("EXPANSION_TOLERANCE", "2", &errs),
		Browser: BrowserConfig{
			Headless:             getBool("BROWSER_HEADLESS", true),
			Incognito:            getBool("BROWSER_INCOGNITO", true),
			DisableSandbox:       getBool("BROWSER_DISABLE_SANDBOX", true),
			DisableExtensions:    getBool("BROWSER_DISABLE_EXTENSIONS", true),
			DisableNotifications: getBool("BROWSER_DISABLE_NOTIFICATIONS", true),
			DisableDevShmUsage:   getBool("BROWSER_DISABLE_DEV_SHM", true),
			ExecPath:             os.Getenv("CHROME_PATH"),
		},
		RunPhase:    getEnv("RUN_PHASE", PhaseAll),
		Environment: getEnv("STORY_ENVIRONMENT", "development"),
		loadErrs:    errs,
	}
}

// Validate checks the configuration for values the worker cannot run with
func (c *Config) Validate() error {
	if len(c.loadErrs) > 0 {
		return errors.Join(c.loadErrs...)
	}

	switch c.RunPhase {
	case PhaseDiscover, PhaseExtract, PhaseAll:
	default:
		return fmt.Errorf("invalid RUN_PHASE %q", c.RunPhase)
	}

	switch c.StoreBackend {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.WriteMode {
	case WriteModeInsertIfAbsent, WriteModeOverwrite:
	default:
		return fmt.Errorf("invalid STORE_WRITE_MODE %q", c.WriteMode)
	}

	switch c.ListingRenderer {
	case RendererChrome, RendererHTTP:
	default:
		return fmt.Errorf("invalid LISTING_RENDERER %q", c.ListingRenderer)
	}

	if !strings.Contains(c.ListingURLTemplate, "%d") {
		return fmt.Errorf("LISTING_URL_TEMPLATE must contain a %%d page placeholder")
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("KEYWORDS must not be empty")
	}
	if c.CutoffDate.IsZero() {
		return fmt.Errorf("CUTOFF_DATE must be a YYYY-MM-DD date")
	}
	if c.CatalogFile == "" {
		return fmt.Errorf("CATALOG_FILE must not be empty")
	}
	if c.WaitTimeout <= 0 || c.NavigationTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxPageAttempts < 0 || c.MaxExpansionRounds < 0 || c.ExpansionTolerance < 0 {
		return fmt.Errorf("loop guards must not be negative")
	}
	if c.RedisAddr != "" && c.RedisStreamCount <= 0 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be positive")
	}

	return nil
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getInt parses an integer variable, recording a failure in errs
func getInt(key, defaultValue string, errs *[]error) int {
	value := getEnv(key, defaultValue)
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: must be an integer", key, value))
		return 0
	}
	return n
}

// getDuration reads a whole number of units, e.g. PAGE_DELAY_SECONDS=4
func getDuration(key, defaultValue string, unit time.Duration, errs *[]error) time.Duration {
	return time.Duration(getInt(key, defaultValue, errs)) * unit
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
