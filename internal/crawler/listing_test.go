package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"sjsage522/storyworker/logger"
	crawlerrors "sjsage522/storyworker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testListingTemplate = "https://slashdot.org/?page=%d"

var (
	testCutoff   = time.Date(2020, 1, 19, 0, 0, 0, 0, time.UTC)
	testKeywords = []string{"covid", "coronavirus", "wuhan", "ncov"}
)

func newTestListingCrawler(page Page, maxAttempts int) *ListingCrawler {
	c := NewListingCrawler(page, ListingConfig{
		URLTemplate:       testListingTemplate,
		Selectors:         DefaultListingSelectors,
		NavigationTimeout: time.Second,
		WaitTimeout:       time.Second,
		PageDelay:         time.Second,
		MaxPageAttempts:   maxAttempts,
	})
	c.sleepFunc = noSleep
	return c
}

func pageURL(n int) string {
	return fmt.Sprintf(testListingTemplate, n)
}

func TestListingCrawlerStopsAtCutoff(t *testing.T) {
	page := NewMockPage()
	page.AddPage(pageURL(0), listingPage(
		listingItem("103", "on Wednesday January 22, 2020 @10:00AM", "//slashdot.org/story/20/01/22/103/covid-spreads"),
		listingItem("102", "on Tuesday January 21, 2020 @09:00PM", "//slashdot.org/story/20/01/21/102/rust-release"),
		listingItem("101", "on Tuesday January 21, 2020 @08:00AM", "//science.slashdot.org/story/20/01/21/101/Wuhan-Market"),
		listingItem("100", "on Sunday January 19, 2020 @01:00AM", "//slashdot.org/story/20/01/19/100/ncov-genome"),
	))
	page.AddPage(pageURL(1), listingPage(
		listingItem("99", "on Saturday January 18, 2020 @11:59PM", "//slashdot.org/story/20/01/18/99/covid-early"),
		listingItem("98", "on Monday January 20, 2020 @11:59PM", "//slashdot.org/story/20/01/20/98/covid-late"),
	))
	page.AddPage(pageURL(2), listingPage(
		listingItem("97", "on Monday January 20, 2020 @11:59PM", "//slashdot.org/story/20/01/20/97/covid-page-2"),
	))

	catalog, err := newTestListingCrawler(page, 3).Crawl(context.Background(), testCutoff, testKeywords)
	require.NoError(t, err)

	assert.Equal(t, []CatalogEntry{
		{ID: "103", URL: "https://slashdot.org/story/20/01/22/103/covid-spreads"},
		{ID: "101", URL: "https://science.slashdot.org/story/20/01/21/101/Wuhan-Market"},
		{ID: "100", URL: "https://slashdot.org/story/20/01/19/100/ncov-genome"},
	}, catalog.Entries())
	assert.Equal(t, []string{pageURL(0), pageURL(1)}, page.navigations)
}

func TestListingCrawlerTwoPages(t *testing.T) {
	page := NewMockPage()
	page.AddPage(pageURL(0), listingPage(
		listingItem("3", "on Friday January 24, 2020 @10:00AM", "//slashdot.org/story/3/Coronavirus-Cases"),
		listingItem("2", "on Thursday January 23, 2020 @10:00AM", "//slashdot.org/story/2/covid-update"),
		listingItem("1", "on Wednesday January 22, 2020 @10:00AM", "//slashdot.org/story/1/wuhan-lockdown"),
	))
	page.AddPage(pageURL(1), listingPage(
		listingItem("0", "on Friday January 10, 2020 @10:00AM", "//slashdot.org/story/0/covid-old"),
		listingItem("-1", "on Friday January 24, 2020 @10:00AM", "//slashdot.org/story/-1/covid-misplaced"),
	))

	catalog, err := newTestListingCrawler(page, 3).Crawl(context.Background(), testCutoff, testKeywords)
	require.NoError(t, err)
	assert.Equal(t, 3, catalog.Len())
	for _, id := range []string{"3", "2", "1"} {
		_, ok := catalog.Get(id)
		assert.True(t, ok, id)
	}
}

func TestListingCrawlerSkipsItemsWithoutTitle(t *testing.T) {
	page := NewMockPage()
	page.AddPage(pageURL(0), listingPage(
		`<article id="firehose-ad"><div class="sponsored">Buy now</div></article>`,
		listingItem("5", "on Wednesday January 22, 2020 @10:00AM", "//slashdot.org/story/5/covid"),
		`<article id="firehose-6"><span class="story-title" id="title-6"><a href="//slashdot.org/story/6/covid">x</a></span><time id="fhtime-6" datetime="garbage"></time></article>`,
		listingItem("4", "on Saturday January 18, 2020 @10:00AM", "//slashdot.org/story/4/covid"),
	))

	var logs bytes.Buffer
	c := newTestListingCrawler(page, 3)
	c.log = logger.New(&logs)

	catalog, err := c.Crawl(context.Background(), testCutoff, testKeywords)
	require.NoError(t, err)
	assert.Equal(t, []CatalogEntry{{ID: "5", URL: "https://slashdot.org/story/5/covid"}}, catalog.Entries())

	// malformed items are surfaced at warn level
	var skipped int
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if strings.Contains(line, "Skipping listing item") {
			assert.Contains(t, line, `"level":"warn"`)
			assert.Contains(t, line, pageURL(0))
			skipped++
		}
	}
	assert.Equal(t, 2, skipped)
}

func TestListingCrawlerRetriesSamePage(t *testing.T) {
	page := NewMockPage()
	page.FailNavigation(pageURL(0), context.DeadlineExceeded, fmt.Errorf("net::ERR_CONNECTION_RESET"))
	page.AddPage(pageURL(0), listingPage(
		listingItem("5", "on Wednesday January 22, 2020 @10:00AM", "//slashdot.org/story/5/covid"),
		listingItem("4", "on Saturday January 18, 2020 @10:00AM", "//slashdot.org/story/4/covid"),
	))

	catalog, err := newTestListingCrawler(page, 0).Crawl(context.Background(), testCutoff, testKeywords)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())
	assert.Equal(t, []string{pageURL(0), pageURL(0), pageURL(0)}, page.navigations)
}

func TestListingCrawlerExhaustsAttempts(t *testing.T) {
	page := NewMockPage()
	page.AddPage(pageURL(0), listingPage(
		listingItem("5", "on Wednesday January 22, 2020 @10:00AM", "//slashdot.org/story/5/covid"),
	))
	// page 1 never shows the pagination marker
	page.AddPage(pageURL(1), `<html><body><div id="firehoselist"></div></body></html>`)

	catalog, err := newTestListingCrawler(page, 2).Crawl(context.Background(), testCutoff, testKeywords)
	require.Error(t, err)
	assert.Equal(t, crawlerrors.ErrorTypeExhausted, crawlerrors.TypeOf(err))
	assert.Equal(t, 1, catalog.Len())
	assert.Equal(t, []string{pageURL(0), pageURL(1), pageURL(1)}, page.navigations)
}

func TestListingCrawlerEndOfListing(t *testing.T) {
	page := NewMockPage()
	page.AddPage(pageURL(0), listingPage(
		listingItem("5", "on Wednesday January 22, 2020 @10:00AM", "//slashdot.org/story/5/covid"),
	))
	page.AddPage(pageURL(1), listingPage())

	catalog, err := newTestListingCrawler(page, 1).Crawl(context.Background(), testCutoff, testKeywords)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())
}

func TestListingCrawlerCanceled(t *testing.T) {
	page := NewMockPage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestListingCrawler(page, 0).Crawl(ctx, testCutoff, testKeywords)
	assert.ErrorIs(t, err, context.Canceled)
}
