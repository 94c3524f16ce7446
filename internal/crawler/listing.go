package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sjsage522/storyworker/config"
	"sjsage522/storyworker/helpers"
	"sjsage522/storyworker/logger"
	crawlerrors "sjsage522/storyworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// ListingConfig contains configuration for the listing crawler
type ListingConfig struct {
	URLTemplate       string
	Selectors         ListingSelectors
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	PageDelay         time.Duration
	// MaxPageAttempts bounds retries of one page index, zero retries forever
	MaxPageAttempts int
}

// NewListingConfig builds the listing configuration from the application config
func NewListingConfig(cfg *config.Config) ListingConfig {
	return ListingConfig{
		URLTemplate:       cfg.ListingURLTemplate,
		Selectors:         DefaultListingSelectors,
		NavigationTimeout: cfg.NavigationTimeout,
		WaitTimeout:       cfg.WaitTimeout,
		PageDelay:         cfg.PageDelay,
		MaxPageAttempts:   cfg.MaxPageAttempts,
	}
}

// ListingCrawler walks the paginated listing newest first and catalogs
// matching stories until it reaches one older than the cutoff
type ListingCrawler struct {
	page      Page
	cfg       ListingConfig
	log       *logger.Logger
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewListingCrawler creates a new listing crawler
func NewListingCrawler(page Page, cfg ListingConfig) *ListingCrawler {
	return &ListingCrawler{
		page:      page,
		cfg:       cfg,
		log:       logger.ForComponent("listing"),
		sleepFunc: helpers.SleepContext,
	}
}

// summary is one parsed listing item
type summary struct {
	id          string
	publishedAt time.Time
	title       *goquery.Selection
}

// Crawl discovers stories published on or after the cutoff day whose url
// matches a keyword. On error the entries found so far are returned too.
func (c *ListingCrawler) Crawl(ctx context.Context, cutoff time.Time, keywords []string) (*Catalog, error) {
	catalog := NewCatalog()
	cutoffDay := DateOf(cutoff)

	for pageNum := 0; ; pageNum++ {
		if pageNum > 0 {
			if err := c.sleepFunc(ctx, c.cfg.PageDelay); err != nil {
				return catalog, err
			}
		}

		pageURL := fmt.Sprintf(c.cfg.URLTemplate, pageNum)
		c.log.Info().Int("page", pageNum).Msgf("Processing page no. %d...", pageNum)

		doc, err := c.loadPage(ctx, pageURL)
		if err != nil {
			return catalog, err
		}

		if c.scanPage(doc, pageURL, cutoffDay, keywords, catalog) {
			break
		}
	}

	c.log.Info().Int("stories", catalog.Len()).Msg("Discovery finished")
	return catalog, nil
}

// loadPage retries the same page until it renders or the attempt guard trips
func (c *ListingCrawler) loadPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	sel := c.cfg.Selectors
	for attempt := 1; ; attempt++ {
		doc, err := openPage(ctx, c.page, pageURL, sel.Ready, c.cfg.NavigationTimeout, c.cfg.WaitTimeout)
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil || !crawlerrors.IsRetryable(err) {
			return nil, err
		}

		c.log.Warn().Err(err).Int("attempt", attempt).Str("url", pageURL).Msg("Page load failed, retrying")
		if c.cfg.MaxPageAttempts > 0 && attempt >= c.cfg.MaxPageAttempts {
			return nil, crawlerrors.NewExhausted(pageURL, "page load", attempt)
		}
	}
}

// scanPage adds matching summaries to the catalog and reports whether
// discovery should stop
func (c *ListingCrawler) scanPage(doc *goquery.Document, pageURL string, cutoffDay time.Time, keywords []string, catalog *Catalog) bool {
	sel := c.cfg.Selectors
	items := doc.Find(sel.Container).Find(sel.Item)
	if items.Length() == 0 {
		c.log.Warn().Str("url", pageURL).Msg("No stories on page, end of listing")
		return true
	}

	stop := false
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		s, err := c.parseSummary(item, pageURL)
		if err != nil {
			c.log.Warn().Err(err).Str("url", pageURL).Msg("Skipping listing item")
			return true
		}

		if DateOf(s.publishedAt).Before(cutoffDay) {
			c.log.Info().Str("id", s.id).Time("published_at", s.publishedAt).Msg("Reached cutoff date")
			stop = true
			return false
		}

		link, err := c.storyURL(s, pageURL)
		if err != nil {
			c.log.Warn().Err(err).Str("url", pageURL).Msg("Skipping listing item")
			return true
		}
		if !MatchesKeyword(link, keywords) {
			return true
		}

		if catalog.Add(s.id, link) {
			c.log.Info().Str("id", s.id).Msgf("\t%s", s.publishedAt.Format("2006-01-02"))
		}
		return true
	})

	return stop
}

func (c *ListingCrawler) parseSummary(item *goquery.Selection, pageURL string) (*summary, error) {
	sel := c.cfg.Selectors

	title := item.Find(sel.Title).First()
	if title.Length() == 0 {
		return nil, crawlerrors.NewStructural(pageURL, "story title")
	}
	rawID, _ := title.Attr("id")
	id, ok := helpers.TrimIDPrefix(rawID, sel.TitleIDPrefix)
	if !ok {
		return nil, crawlerrors.NewStructural(pageURL, "story id")
	}

	timeSel := item.Find(fmt.Sprintf(sel.TimeByID, id)).First()
	raw, exists := timeSel.Attr("datetime")
	if !exists {
		return nil, crawlerrors.NewStructural(id, "publish time")
	}
	publishedAt, err := ParseStoryTime(raw)
	if err != nil {
		return nil, crawlerrors.NewParsing(id, "invalid publish time", err)
	}

	return &summary{id: id, publishedAt: publishedAt, title: title}, nil
}

func (c *ListingCrawler) storyURL(s *summary, pageURL string) (string, error) {
	href, exists := s.title.Find(c.cfg.Selectors.Link).First().Attr("href")
	if !exists || strings.TrimSpace(href) == "" {
		return "", crawlerrors.NewStructural(s.id, "story link")
	}
	link, err := ResolveURL(pageURL, href)
	if err != nil {
		return "", crawlerrors.NewParsing(s.id, "invalid story link", err)
	}
	return link, nil
}
