package crawler

import (
	"context"
	"fmt"
	"io"
	"time"

	"sjsage522/storyworker/helpers"
	crawlerrors "sjsage522/storyworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// StaticPage implements Page over plain HTTP. It suits server-rendered
// listing pages; interactions are not supported.
type StaticPage struct {
	fetchFunc func(ctx context.Context, url string) (io.Reader, error)
	url       string
	doc       *goquery.Document
}

// NewStaticPage creates a page that fetches with randomized browser headers
func NewStaticPage() *StaticPage {
	return &StaticPage{fetchFunc: helpers.FetchWithRandomHeaders}
}

// Navigate fetches and parses url
func (p *StaticPage) Navigate(ctx context.Context, url string) error {
	p.url, p.doc = url, nil

	body, err := p.fetchFunc(ctx, url)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return fmt.Errorf("HTML parsing error: %w", err)
	}
	p.doc = doc
	return nil
}

// WaitFor checks the fetched document once; a static page never changes
func (p *StaticPage) WaitFor(ctx context.Context, selector string) error {
	if p.doc == nil {
		return fmt.Errorf("no document loaded")
	}
	if p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%s not present in %s", selector, p.url)
	}
	return nil
}

// Document returns the parsed document
func (p *StaticPage) Document(ctx context.Context) (*goquery.Document, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	return p.doc, nil
}

// Click is not supported
func (p *StaticPage) Click(ctx context.Context, selector string) error {
	return crawlerrors.NewUnsupported(p.url, "click")
}

// Drag is not supported
func (p *StaticPage) Drag(ctx context.Context, selector string, dx float64) error {
	return crawlerrors.NewUnsupported(p.url, "drag")
}

// openPage navigates to url, waits for the ready marker and returns a
// snapshot. Failures come back classified.
func openPage(ctx context.Context, page Page, url, ready string, navTimeout, waitTimeout time.Duration) (*goquery.Document, error) {
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	err := page.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return nil, crawlerrors.ClassifyNavigation(ctx, url, err)
	}

	if err := waitReady(ctx, page, url, ready, waitTimeout); err != nil {
		return nil, err
	}

	return snapshot(ctx, page, url, waitTimeout)
}

func waitReady(ctx context.Context, page Page, url, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := page.WaitFor(waitCtx, selector); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return crawlerrors.NewReadinessTimeout(url, selector, err)
	}
	return nil
}

// snapshot reads the current document, giving up after timeout
func snapshot(ctx context.Context, page Page, url string, timeout time.Duration) (*goquery.Document, error) {
	docCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	doc, err := page.Document(docCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, crawlerrors.NewNetwork(url, "failed to read document", err)
	}
	return doc, nil
}
