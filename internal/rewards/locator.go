package rewards

import (
	"iter"
	"rewardfeed/pkg/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultPrefixes are the reward provider URL prefixes Coin Master uses.
var DefaultPrefixes = []string{
	"https://rewards.coinmaster.com",
	"https://coinmaster.onelink.me",
}

// Locator finds anchors that point at an allow-listed reward provider.
type Locator struct {
	prefixes []string
}

func NewLocator(prefixes []string) Locator {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	return Locator{prefixes: prefixes}
}

// Matches reports whether href starts with one of the allow-listed prefixes.
func (l Locator) Matches(href string) bool {
	href = strings.TrimSpace(href)
	for _, prefix := range l.prefixes {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}

// candidate returns the reward candidate for node, if node is one.
func (l Locator) candidate(node *html.Node) (Candidate, bool) {
	href, ok := htmlutil.Attr(node, "href")
	if !ok || !l.Matches(href) {
		return Candidate{}, false
	}
	return Candidate{
		URL:  strings.TrimSpace(href),
		Text: htmlutil.CleanText(htmlutil.GetText(node)),
		Node: node,
	}, true
}

// Locate lazily yields the reward anchors under sel in document order, each
// element at most once.
func (l Locator) Locate(sel *goquery.Selection) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		seen := map[*html.Node]struct{}{}
		for _, node := range sel.Find("a[href]").Nodes {
			if _, dup := seen[node]; dup {
				continue
			}
			seen[node] = struct{}{}

			c, ok := l.candidate(node)
			if !ok {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// All collects Locate into a slice.
func (l Locator) All(sel *goquery.Selection) []Candidate {
	var out []Candidate
	for c := range l.Locate(sel) {
		out = append(out, c)
	}
	return out
}
