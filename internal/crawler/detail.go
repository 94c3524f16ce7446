package crawler

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sjsage522/storyworker/config"
	"sjsage522/storyworker/helpers"
	"sjsage522/storyworker/logger"
	crawlerrors "sjsage522/storyworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// DetailConfig contains configuration for the detail extractor
type DetailConfig struct {
	Selectors          DetailSelectors
	NavigationTimeout  time.Duration
	WaitTimeout        time.Duration
	ExpansionDelay     time.Duration
	ExpansionTolerance int
	MaxExpansionRounds int
}

// NewDetailConfig builds the detail configuration from the application config
func NewDetailConfig(cfg *config.Config) DetailConfig {
	return DetailConfig{
		Selectors:          DefaultDetailSelectors,
		NavigationTimeout:  cfg.NavigationTimeout,
		WaitTimeout:        cfg.WaitTimeout,
		ExpansionDelay:     cfg.ExpansionDelay,
		ExpansionTolerance: cfg.ExpansionTolerance,
		MaxExpansionRounds: cfg.MaxExpansionRounds,
	}
}

// DetailExtractor turns one catalog entry into a story and its comments
type DetailExtractor struct {
	page      Page
	cfg       DetailConfig
	expander  *Expander
	commentID *regexp.Regexp
	log       *logger.Logger
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewDetailExtractor creates a new detail extractor
func NewDetailExtractor(page Page, cfg DetailConfig) *DetailExtractor {
	return &DetailExtractor{
		page: page,
		cfg:  cfg,
		expander: NewExpander(page, cfg.Selectors, cfg.ExpansionTolerance, cfg.MaxExpansionRounds,
			cfg.WaitTimeout, cfg.ExpansionDelay),
		commentID: regexp.MustCompile(cfg.Selectors.CommentIDPattern),
		log:       logger.ForComponent("detail"),
		sleepFunc: helpers.SleepContext,
	}
}

// Extract loads the story page, expands the comment thread and parses both.
// Errors are classified; every CrawlerError means "skip this entry".
func (d *DetailExtractor) Extract(ctx context.Context, entry CatalogEntry) (*Story, []Comment, error) {
	sel := d.cfg.Selectors

	doc, err := openPage(ctx, d.page, entry.URL, sel.Ready, d.cfg.NavigationTimeout, d.cfg.WaitTimeout)
	if err != nil {
		return nil, nil, err
	}

	story, err := d.parseStory(doc, entry)
	if err != nil {
		return nil, nil, err
	}

	result, err := d.expander.Expand(ctx, entry.URL, doc)
	if err != nil {
		return nil, nil, err
	}
	d.log.Debug().Str("id", entry.ID).Int("rounds", result.Rounds).
		Int("loaded", result.Loaded).Int("total", result.Total).Msg("Expansion finished")

	d.dismissOverlay(ctx, entry)

	final, err := snapshot(ctx, d.page, entry.URL, d.cfg.WaitTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, err
		}
		d.log.Warn().Err(err).Str("id", entry.ID).Msg("Final snapshot failed, using expansion snapshot")
		final = result.Doc
	}

	return story, d.parseComments(final, entry), nil
}

// parseStory reads the parent record fields from the first snapshot
func (d *DetailExtractor) parseStory(doc *goquery.Document, entry CatalogEntry) (*Story, error) {
	sel := d.cfg.Selectors

	titleSel := doc.Find(sel.Title).First()
	if titleSel.Length() == 0 {
		return nil, crawlerrors.NewStructural(entry.ID, "story title")
	}

	raw, exists := doc.Find(fmt.Sprintf(sel.TimeByID, entry.ID)).First().Attr("datetime")
	if !exists {
		return nil, crawlerrors.NewStructural(entry.ID, "publish time")
	}
	publishedAt, err := ParseStoryTime(raw)
	if err != nil {
		return nil, crawlerrors.NewParsing(entry.ID, "invalid publish time", err)
	}

	story := &Story{
		ID:          entry.ID,
		URL:         entry.URL,
		Title:       strings.TrimSpace(titleSel.Text()),
		Author:      BylineAuthor(doc.Find(sel.Byline).First().Text(), sel.BylinePrefix),
		PublishedAt: publishedAt,
	}

	if body := doc.Find(fmt.Sprintf(sel.BodyByID, entry.ID)).First(); body.Length() > 0 {
		text := CleanText(body.Text())
		story.Body = &text
	}
	if tags := doc.Find(sel.Tags).First(); tags.Length() > 0 {
		story.Tags = SplitTags(tags.Text())
	}

	return story, nil
}

// dismissOverlay drags the abbreviation bar handles out of the way. It is
// best effort; failures are only logged.
func (d *DetailExtractor) dismissOverlay(ctx context.Context, entry CatalogEntry) {
	sel := d.cfg.Selectors
	for _, handle := range sel.OverlayHandles {
		dragCtx, cancel := context.WithTimeout(ctx, d.cfg.WaitTimeout)
		err := d.page.Drag(dragCtx, handle, sel.OverlayOffset)
		cancel()
		if err != nil {
			d.log.Warn().Err(err).Str("id", entry.ID).Str("handle", handle).Msg("Overlay dismissal failed")
		}
	}

	if err := d.sleepFunc(ctx, d.cfg.ExpansionDelay); err != nil {
		d.log.Debug().Err(err).Msg("Pause after overlay dismissal interrupted")
	}
}

// parseComments extracts every comment with a body; broken nodes are logged and dropped
func (d *DetailExtractor) parseComments(doc *goquery.Document, entry CatalogEntry) []Comment {
	sel := d.cfg.Selectors

	list := doc.Find(sel.CommentList).First()
	if list.Length() == 0 {
		d.log.Debug().Str("id", entry.ID).Msg("No comment listing")
		return nil
	}

	var comments []Comment
	list.Find(sel.CommentNode).Each(func(_ int, node *goquery.Selection) {
		nodeID, _ := node.Attr("id")
		if !d.commentID.MatchString(nodeID) {
			return
		}

		comment, err := d.parseComment(node, nodeID, entry.ID)
		if err != nil {
			d.log.Warn().Err(err).Str("id", entry.ID).Str("node", nodeID).Msg("Skipping comment")
			return
		}
		if comment != nil {
			comments = append(comments, *comment)
		}
	})

	return comments
}

// parseComment returns nil without error for deleted comments that have no body
func (d *DetailExtractor) parseComment(node *goquery.Selection, nodeID, storyID string) (*Comment, error) {
	sel := d.cfg.Selectors

	bodySel := node.Find(sel.CommentBody).First()
	if bodySel.Length() == 0 {
		return nil, nil
	}
	body := CleanText(bodySel.Text())
	if body == "" {
		return nil, nil
	}

	detailsID, _ := node.Find(sel.Details).First().Attr("id")
	id, ok := helpers.TrimIDPrefix(detailsID, sel.DetailsIDPrefix)
	if !ok {
		if id, ok = helpers.TrimIDPrefix(nodeID, sel.CommentIDPrefix); !ok {
			return nil, crawlerrors.NewStructural(nodeID, "comment id")
		}
	}

	bySel := node.Find(sel.By).First()
	if bySel.Length() == 0 {
		return nil, crawlerrors.NewStructural(id, "comment author")
	}
	var author string
	if link := bySel.Find("a").First(); link.Length() > 0 {
		author = strings.TrimSpace(link.Text())
	} else {
		author = strings.TrimSpace(strings.TrimPrefix(CleanText(bySel.Text()), "by"))
	}

	scoreSel := node.Find(sel.Score).First()
	if scoreSel.Length() == 0 {
		return nil, crawlerrors.NewStructural(id, "comment score")
	}
	descriptor := strings.TrimSpace(scoreSel.Text())
	score, err := ParseScore(descriptor)
	if err != nil {
		return nil, crawlerrors.NewParsing(id, "invalid comment score", err)
	}

	return &Comment{
		ID:      id,
		StoryID: storyID,
		Body:    body,
		Author:  author,
		Score:   score,
		Flags:   ParseFlags(descriptor),
	}, nil
}
