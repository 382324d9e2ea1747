// Package textproc holds the text preprocessing applied to posts before
// ranking: markup and social noise removal, and language filtering.
package textproc

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/ibeckermayer/narratives/internal/types"
)

var (
	mentionPattern = regexp.MustCompile(`@[\p{L}\p{M}\p{N}_]+`)
	hashtagPattern = regexp.MustCompile(`#[\p{L}\p{M}\p{N}_]+`)
	urlPattern     = regexp.MustCompile(`http\S+`)
	markupPattern  = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
)

// Clean removes HTML markup, @mentions, #hashtags and URLs from text and
// trims surrounding whitespace. Passes repeat until nothing changes, so
// Clean(Clean(s)) == Clean(s); every changing pass shortens the text.
func Clean(text string) string {
	for {
		next := cleanOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanOnce(text string) string {
	if markupPattern.MatchString(text) {
		text = StripHTML(text)
	}
	return strings.TrimSpace(StripSocial(text))
}

// StripSocial removes mentions, hashtags and URLs, in that order.
func StripSocial(text string) string {
	text = mentionPattern.ReplaceAllString(text, "")
	text = hashtagPattern.ReplaceAllString(text, "")
	return urlPattern.ReplaceAllString(text, "")
}

// StripHTML returns the text content of an HTML fragment. Input that fails to
// parse is returned unchanged.
func StripHTML(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			if n.Data == "br" || n.Data == "p" {
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}

// Cleaner cleans text. The ranker takes one so tests can swap the transform.
type Cleaner interface {
	Clean(text string) string
}

// CleanerFunc adapts a function to Cleaner.
type CleanerFunc func(string) string

// Clean calls f(text).
func (f CleanerFunc) Clean(text string) string { return f(text) }

// Default is the Cleaner backed by Clean.
var Default Cleaner = CleanerFunc(Clean)

// CleanPosts returns a copy of posts with cleaned text. The input slice is
// not modified.
func CleanPosts(posts []types.Post, c Cleaner) []types.Post {
	if c == nil {
		c = Default
	}
	out := make([]types.Post, len(posts))
	for i, p := range posts {
		p.Text = c.Clean(p.Text)
		out[i] = p
	}
	return out
}
