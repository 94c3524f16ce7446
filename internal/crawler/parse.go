package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sjsage522/storyworker/helpers"
)

// StoryTimeLayout parses datetime attributes such as "on Monday January 20, 2020 @02:30PM"
const StoryTimeLayout = "on Monday January 2, 2006 @3:04PM"

var scoreRegex = regexp.MustCompile(`-?\d+`)

// CleanText joins all lines and collapses runs of whitespace into one space
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ParseStoryTime parses a story timestamp in StoryTimeLayout
func ParseStoryTime(raw string) (time.Time, error) {
	value := CleanText(raw)
	// "pm" and "am" are accepted in either case
	if n := len(value); n >= 2 {
		value = value[:n-2] + strings.ToUpper(value[n-2:])
	}

	t, err := time.Parse(StoryTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid story time %q: %w", raw, err)
	}
	return t, nil
}

// DateOf truncates t to its calendar day
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseScore returns the first integer found in a score descriptor like "Score:5, Insightful"
func ParseScore(descriptor string) (int, error) {
	match := scoreRegex.FindString(descriptor)
	if match == "" {
		return 0, fmt.Errorf("no score in %q", descriptor)
	}
	return strconv.Atoi(match)
}

// ParseFlags sets each moderation flag whose keyword appears in the descriptor
func ParseFlags(descriptor string) ModerationFlags {
	lower := strings.ToLower(descriptor)
	return ModerationFlags{
		Insightful:  strings.Contains(lower, "insightful"),
		Informative: strings.Contains(lower, "informative"),
		Interesting: strings.Contains(lower, "interesting"),
		Funny:       strings.Contains(lower, "funny"),
	}
}

// ParseCount parses a rendered counter such as "1,204"
func ParseCount(text string) (int, error) {
	value := strings.ReplaceAll(CleanText(text), ",", "")
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid counter %q: %w", text, err)
	}
	return n, nil
}

// BylineAuthor extracts the author from "Posted by <author> on <date> ..."
func BylineAuthor(byline, prefix string) string {
	head, _ := helpers.GetSplitPart(CleanText(byline), " on ", 0)
	return strings.TrimSpace(strings.TrimPrefix(head, strings.TrimSpace(prefix)))
}

// SplitTags returns the whitespace separated tag tokens, or nil if there are none
func SplitTags(text string) []string {
	tags := strings.Fields(text)
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// MatchesKeyword reports whether link contains any keyword, ignoring case
func MatchesKeyword(link string, keywords []string) bool {
	lower := strings.ToLower(link)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// ResolveURL resolves href against the page it was found on, so
// protocol-relative links pick up the page scheme
func ResolveURL(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
