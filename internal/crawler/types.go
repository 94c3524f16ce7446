package crawler

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// CatalogEntry is one discovered story awaiting extraction
type CatalogEntry struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Story is the parent record extracted from a detail page
type Story struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Body        *string   `json:"body,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"published_at"`
}

// ModerationFlags are the independent labels found in a comment's score descriptor
type ModerationFlags struct {
	Insightful  bool `json:"insightful"`
	Informative bool `json:"informative"`
	Interesting bool `json:"interesting"`
	Funny       bool `json:"funny"`
}

// Comment is a child record attached to a story
type Comment struct {
	ID      string          `json:"id"`
	StoryID string          `json:"story_id"`
	Body    string          `json:"body"`
	Author  string          `json:"author"`
	Score   int             `json:"score"`
	Flags   ModerationFlags `json:"flags"`
}

// Page is a single rendering session. Every call blocks until ctx is done at
// the latest; callers bound each call with their own timeout.
type Page interface {
	// Navigate loads url and returns once the page has stabilized
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until an element matching selector is present
	WaitFor(ctx context.Context, selector string) error

	// Document returns a snapshot of the current document tree
	Document(ctx context.Context) (*goquery.Document, error)

	// Click activates the first element matching selector
	Click(ctx context.Context, selector string) error

	// Drag presses on the element matching selector and releases it dx pixels to the right
	Drag(ctx context.Context, selector string, dx float64) error
}

// ListingSelectors contains CSS selectors for listing pages
type ListingSelectors struct {
	Ready         string
	Container     string
	Item          string
	Title         string
	TitleIDPrefix string
	Link          string
	// TimeByID is formatted with the story id
	TimeByID string
}

// DetailSelectors contains CSS selectors for story detail pages
type DetailSelectors struct {
	Ready        string
	Title        string
	BodyByID     string
	Tags         string
	TimeByID     string
	Byline       string
	BylinePrefix string

	LoadedCount    string
	TotalCount     string
	MoreButton     string
	OverlayHandles []string
	OverlayOffset  float64

	CommentList      string
	CommentNode      string
	CommentIDPattern string
	CommentIDPrefix  string
	CommentBody      string
	Score            string
	Details          string
	DetailsIDPrefix  string
	By               string
}

// DefaultListingSelectors matches the Slashdot firehose listing
var DefaultListingSelectors = ListingSelectors{
	Ready:         ".paginate",
	Container:     "div#firehoselist",
	Item:          `article[id^="firehose-"]`,
	Title:         "span.story-title",
	TitleIDPrefix: "title-",
	Link:          "a",
	TimeByID:      "time#fhtime-%s",
}

// DefaultDetailSelectors matches the Slashdot story page
var DefaultDetailSelectors = DetailSelectors{
	Ready:        "#fhft",
	Title:        "span.story-title a",
	BodyByID:     "div#fhbody-%s",
	Tags:         "div.story-tags",
	TimeByID:     "time#fhtime-%s",
	Byline:       "span.story-byline",
	BylinePrefix: "Posted by ",

	LoadedCount:    "span.loadedcommentcnt",
	TotalCount:     "span.totalcommentcnt",
	MoreButton:     "#more_comments_button",
	OverlayHandles: []string{"#ccw-abbr-bar-pos .ccwb", "#ccw-abbr-bar-pos .ccwa"},
	OverlayOffset:  400,

	CommentList:      "ul#commentlisting",
	CommentNode:      `div[id^="comment_"]`,
	CommentIDPattern: `^comment_\d+$`,
	CommentIDPrefix:  "comment_",
	CommentBody:      `div[id^="comment_body_"]`,
	Score:            "span.score",
	Details:          "span.otherdetails",
	DetailsIDPrefix:  "comment_otherdetails_",
	By:               "span.by",
}
