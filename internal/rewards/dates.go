package rewards

import (
	"regexp"
	"rewardfeed/internal/components/chrono"
	"strconv"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

var referenceMonths = []string{
	"january",
	"february",
	"march",
	"april",
	"may",
	"june",
	"july",
	"august",
	"september",
	"october",
	"november",
	"december",
}

var monthAbbreviations = map[string]time.Month{
	"jan":  time.January,
	"feb":  time.February,
	"mar":  time.March,
	"apr":  time.April,
	"jun":  time.June,
	"jul":  time.July,
	"aug":  time.August,
	"sep":  time.September,
	"sept": time.September,
	"oct":  time.October,
	"nov":  time.November,
	"dec":  time.December,
}

// misspelled month names such as "Febuary" still score above this
const fuzzyMonthThreshold = 0.92

// a misspelling is at most one edit away from the month it resembles
const fuzzyMonthMaxEdits = 1

func parseMonth(word string) (time.Month, bool) {
	word = strings.ToLower(strings.TrimSuffix(word, "."))
	for i, month := range referenceMonths {
		if word == month {
			return time.January + time.Month(i), true
		}
	}
	if month, ok := monthAbbreviations[word]; ok {
		return month, true
	}
	if len(word) < 4 {
		return 0, false
	}

	var bestSimilarity float64
	best := -1
	for i, month := range referenceMonths {
		// "marching" or "augusta" are words of their own, not misspellings
		if strings.HasPrefix(word, month) {
			return 0, false
		}
		similarity := matchr.JaroWinkler(word, month, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = i
		}
	}
	if best < 0 || bestSimilarity < fuzzyMonthThreshold {
		return 0, false
	}
	if matchr.DamerauLevenshtein(word, referenceMonths[best]) > fuzzyMonthMaxEdits {
		return 0, false
	}
	return time.January + time.Month(best), true
}

var monthDayRegex = regexp.MustCompile(`(?i)\b([a-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)

// ParseHeadingDate reads a "<Month> <Day>" date out of a section heading,
// dated in now's year, or now's date if the heading mentions "today".
func ParseHeadingDate(text string, now time.Time) (string, bool) {
	for _, match := range monthDayRegex.FindAllStringSubmatch(text, -1) {
		month, ok := parseMonth(match[1])
		if !ok {
			continue
		}
		day, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		date := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
		// time.Date normalizes February 30 into March
		if date.Month() != month || date.Day() != day {
			continue
		}
		return chrono.Date(date), true
	}

	if strings.Contains(strings.ToLower(text), "today") {
		return chrono.Date(now), true
	}
	return "", false
}

var urlDateRegex = regexp.MustCompile(`_(\d{8})`)

// URLDate extracts a `_YYYYMMDD` date embedded in a reward url. The digits
// are split by position only, no calendar validation happens.
func URLDate(url string) (string, bool) {
	match := urlDateRegex.FindStringSubmatch(url)
	if len(match) < 2 {
		return "", false
	}
	digits := match[1]
	return digits[0:4] + "-" + digits[4:6] + "-" + digits[6:8], true
}

// DateSource records which signal produced a link's date.
type DateSource int

const (
	SourceURL DateSource = iota
	SourceHeading
	SourceRunDate
)

func (s DateSource) String() string {
	switch s {
	case SourceURL:
		return "url"
	case SourceHeading:
		return "heading"
	case SourceRunDate:
		return "run-date"
	}
	return "unknown"
}

// Resolver assigns a calendar date to reward links. The url date wins, then
// the governing section's heading date, then the date of the run itself.
type Resolver struct {
	now time.Time
}

// NewResolver creates a resolver for a run executing at now, now's location
// decides what "today" is.
func NewResolver(now time.Time) Resolver {
	return Resolver{now: now}
}

func (r Resolver) RunDate() string {
	return chrono.Date(r.now)
}

func (r Resolver) HeadingDate(text string) (string, bool) {
	return ParseHeadingDate(text, r.now)
}

func (r Resolver) Resolve(c Candidate, sections Sections) (string, DateSource) {
	if date, ok := URLDate(c.URL); ok {
		return date, SourceURL
	}
	if section, ok := sections.Lookup(c.Node); ok && section.Date != "" {
		return section.Date, SourceHeading
	}
	return r.RunDate(), SourceRunDate
}
