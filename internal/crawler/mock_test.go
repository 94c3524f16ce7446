package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// MockPage implements Page over canned HTML. Each url holds a list of
// states; every successful Click moves to the next one.
type MockPage struct {
	docs      map[string][]string
	navErrors map[string][]error
	clickErr  error
	dragErr   error

	url         string
	state       int
	navigations []string
	clicks      int
	drags       []string
}

func NewMockPage() *MockPage {
	return &MockPage{
		docs:      make(map[string][]string),
		navErrors: make(map[string][]error),
	}
}

// AddPage registers the states served for url
func (m *MockPage) AddPage(url string, states ...string) {
	m.docs[url] = states
}

// FailNavigation queues errors returned by the next navigations to url
func (m *MockPage) FailNavigation(url string, errs ...error) {
	m.navErrors[url] = append(m.navErrors[url], errs...)
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	m.navigations = append(m.navigations, url)
	if errs := m.navErrors[url]; len(errs) > 0 {
		m.navErrors[url] = errs[1:]
		return errs[0]
	}
	if _, ok := m.docs[url]; !ok {
		return fmt.Errorf("page load error net::ERR_CONNECTION_CLOSED")
	}
	m.url, m.state = url, 0
	return nil
}

func (m *MockPage) current() (*goquery.Document, error) {
	states, ok := m.docs[m.url]
	if !ok || len(states) == 0 {
		return nil, fmt.Errorf("no document loaded")
	}
	idx := m.state
	if idx >= len(states) {
		idx = len(states) - 1
	}
	return goquery.NewDocumentFromReader(strings.NewReader(states[idx]))
}

func (m *MockPage) WaitFor(ctx context.Context, selector string) error {
	doc, err := m.current()
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return context.DeadlineExceeded
	}
	return nil
}

func (m *MockPage) Document(ctx context.Context) (*goquery.Document, error) {
	return m.current()
}

func (m *MockPage) Click(ctx context.Context, selector string) error {
	if m.clickErr != nil {
		return m.clickErr
	}
	m.clicks++
	m.state++
	return nil
}

func (m *MockPage) Drag(ctx context.Context, selector string, dx float64) error {
	m.drags = append(m.drags, selector)
	return m.dragErr
}

func noSleep(context.Context, time.Duration) error {
	return nil
}

// listingItem renders one firehose article
func listingItem(id, datetime, href string) string {
	return fmt.Sprintf(`<article id="firehose-%[1]s">
		<header><h2><span class="story-title" id="title-%[1]s"><a href="%[3]s">Story %[1]s</a></span></h2></header>
		<time id="fhtime-%[1]s" datetime="%[2]s">%[2]s</time>
	</article>`, id, datetime, href)
}

func listingPage(items ...string) string {
	return `<html><body><div id="firehoselist">` + strings.Join(items, "\n") +
		`</div><div class="paginate"><a href="?page=1">Older</a></div></body></html>`
}

// commentNode renders one comment; an empty body omits the body element
func commentNode(id, by, score, body string) string {
	bodyHTML := ""
	if body != "-" {
		bodyHTML = fmt.Sprintf(`<div id="comment_body_%s" class="commentBody">%s</div>`, id, body)
	}
	return fmt.Sprintf(`<li id="tree_%[1]s" class="comment">
		<div id="comment_%[1]s" class="cw">
			<div class="commentTop"><span class="by">%[2]s</span>
			<span class="otherdetails" id="comment_otherdetails_%[1]s">on Monday January 20, 2020 @03:00PM</span>
			<span class="score">%[3]s</span></div>
			%[4]s
		</div>
	</li>`, id, by, score, bodyHTML)
}

func detailPage(id string, loaded, total int, comments ...string) string {
	return fmt.Sprintf(`<html><body>
		<article id="firehose-%[1]s">
			<span class="story-title"><a href="//slashdot.org/story/20/01/20/1/covid">  Virus Spreads  </a></span>
			<span class="story-byline">Posted by
				msmash on Monday January 20, 2020 @02:30PM from the worrying dept.</span>
			<time id="fhtime-%[1]s" datetime="on Monday January 20, 2020 @02:30PM">Monday</time>
			<div id="fhbody-%[1]s">  A new virus
				has been found.  </div>
		</article>
		<div class="story-tags">covid   china
			health</div>
		<div id="fhft"></div>
		<span class="loadedcommentcnt">%[2]d</span> of <span class="totalcommentcnt">%[3]d</span>
		<div id="ccw-abbr-bar-pos"><div class="ccwb"></div><div class="ccwa"></div></div>
		<ul id="commentlisting">%[4]s</ul>
	</body></html>`, id, loaded, total, strings.Join(comments, "\n"))
}
