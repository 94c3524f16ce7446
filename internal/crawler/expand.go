package crawler

import (
	"context"
	"time"

	"sjsage522/storyworker/helpers"
	"sjsage522/storyworker/logger"
	crawlerrors "sjsage522/storyworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// ExpansionOutcome tells how the expansion loop ended
type ExpansionOutcome int

const (
	// ExpansionComplete means loaded and total counters are within tolerance
	ExpansionComplete ExpansionOutcome = iota
	// ExpansionExhausted means the round guard tripped first
	ExpansionExhausted
)

func (o ExpansionOutcome) String() string {
	if o == ExpansionExhausted {
		return "exhausted"
	}
	return "complete"
}

// ExpansionResult is the state the loop stopped in
type ExpansionResult struct {
	Outcome ExpansionOutcome
	Rounds  int
	Loaded  int
	Total   int
	Doc     *goquery.Document
}

// Expander keeps pressing "load more" until the rendered comment count
// catches up with the reported total
type Expander struct {
	page        Page
	sel         DetailSelectors
	tolerance   int
	maxRounds   int
	waitTimeout time.Duration
	delay       time.Duration
	log         *logger.Logger
	sleepFunc   func(ctx context.Context, d time.Duration) error
}

// NewExpander creates an expander; maxRounds zero means no guard
func NewExpander(page Page, sel DetailSelectors, tolerance, maxRounds int, waitTimeout, delay time.Duration) *Expander {
	return &Expander{
		page:        page,
		sel:         sel,
		tolerance:   tolerance,
		maxRounds:   maxRounds,
		waitTimeout: waitTimeout,
		delay:       delay,
		log:         logger.ForComponent("expander"),
		sleepFunc:   helpers.SleepContext,
	}
}

// Expand runs the loop starting from doc. An exhausted result is returned
// together with an exhausted error.
func (e *Expander) Expand(ctx context.Context, target string, doc *goquery.Document) (*ExpansionResult, error) {
	result := &ExpansionResult{Doc: doc}

	for {
		loaded, total, ok, err := e.counts(target, result.Doc)
		if err != nil {
			return result, err
		}
		if !ok {
			// no counters rendered means no paginated thread
			return result, nil
		}
		result.Loaded, result.Total = loaded, total

		if total-loaded <= e.tolerance {
			e.log.Debug().Str("target", target).Int("loaded", loaded).Int("total", total).
				Int("rounds", result.Rounds).Msg("Comments fully loaded")
			return result, nil
		}

		if e.maxRounds > 0 && result.Rounds >= e.maxRounds {
			result.Outcome = ExpansionExhausted
			return result, crawlerrors.NewExhausted(target, "comment expansion", result.Rounds)
		}

		if err := e.loadMore(ctx, target); err != nil {
			return result, err
		}
		result.Rounds++

		if err := waitReady(ctx, e.page, target, e.sel.Ready, e.waitTimeout); err != nil {
			return result, err
		}
		next, err := snapshot(ctx, e.page, target, e.waitTimeout)
		if err != nil {
			return result, err
		}
		result.Doc = next

		if err := e.sleepFunc(ctx, e.delay); err != nil {
			return result, err
		}
	}
}

func (e *Expander) loadMore(ctx context.Context, target string) error {
	clickCtx, cancel := context.WithTimeout(ctx, e.waitTimeout)
	defer cancel()

	if err := e.page.Click(clickCtx, e.sel.MoreButton); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return crawlerrors.New(crawlerrors.ErrorTypeStructural, target, "load more control unavailable", err)
	}
	return nil
}

// counts reads the loaded and total counters; ok is false when they are absent
func (e *Expander) counts(target string, doc *goquery.Document) (loaded, total int, ok bool, err error) {
	loadedSel := doc.Find(e.sel.LoadedCount).First()
	totalSel := doc.Find(e.sel.TotalCount).First()
	if loadedSel.Length() == 0 || totalSel.Length() == 0 {
		return 0, 0, false, nil
	}

	if loaded, err = ParseCount(loadedSel.Text()); err != nil {
		return 0, 0, false, crawlerrors.NewParsing(target, "invalid loaded comment count", err)
	}
	if total, err = ParseCount(totalSel.Text()); err != nil {
		return 0, 0, false, crawlerrors.NewParsing(target, "invalid total comment count", err)
	}
	return loaded, total, true, nil
}
