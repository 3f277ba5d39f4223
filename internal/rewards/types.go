package rewards

import (
	"fmt"
	"regexp"

	"golang.org/x/net/html"
)

// RewardType is the category of a reward link.
type RewardType string

const (
	Coins RewardType = "coins"
	Spins RewardType = "spins"
)

func (t RewardType) Valid() bool {
	return t == Coins || t == Spins
}

// FallbackTitle is the title of a reward link whose anchor has no text.
const FallbackTitle = "Free Reward"

// Candidate is an anchor pointing at a reward provider.
type Candidate struct {
	URL  string
	Text string
	// Node is the anchor element the candidate was read from.
	Node *html.Node
}

// Record is the unit published to the store.
type Record struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Type      RewardType `json:"type"`
	Date      string     `json:"date"`
	ScrapedAt int64      `json:"scraped_at"`
}

var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsDate reports whether s has the YYYY-MM-DD shape.
func IsDate(s string) bool {
	return dateShape.MatchString(s)
}

// Validate checks the invariants every published record must hold.
func (r Record) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("record %s: empty url", r.ID)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("record %s: unknown type %q", r.ID, r.Type)
	}
	if !IsDate(r.Date) {
		return fmt.Errorf("record %s: malformed date %q", r.ID, r.Date)
	}
	return nil
}
