package rewards

import (
	"rewardfeed/internal/components/assert"
	"rewardfeed/internal/components/chrono"
	"rewardfeed/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_extractor_candidates = "extractor.candidates"
	report_extractor_source     = "extractor.date-source"
	report_extractor_invalid    = "extractor.invalid-record"
)

// Dated is a candidate together with its resolved date.
type Dated struct {
	Candidate
	Date   string
	Source DateSource
}

// Extractor runs the locate, resolve and build stages over a parsed page.
// The stages are exposed separately so the caller can observe each one.
type Extractor struct {
	locator Locator
	builder Builder
	time    chrono.TimeAPI
	tel     telemetry.API
}

func NewExtractor(locator Locator, time chrono.TimeAPI, tel telemetry.API) Extractor {
	assert.NotNil(time)
	assert.NotNil(tel)
	return Extractor{
		locator: locator,
		builder: NewBuilder(time),
		time:    time,
		tel:     tel,
	}
}

func (e Extractor) Locate(sel *goquery.Selection) []Candidate {
	candidates := e.locator.All(sel)
	e.tel.ReportCount(report_extractor_candidates, int64(len(candidates)))
	return candidates
}

// Resolve dates every candidate against the sections of sel, the run instant
// is read once so every fallback date is the same.
func (e Extractor) Resolve(sel *goquery.Selection, candidates []Candidate) []Dated {
	resolver := NewResolver(e.time.Now())
	sections := GroupSections(sel, e.locator, resolver.HeadingDate)

	for _, section := range sections.All() {
		e.tel.ReportDebug(
			"section",
			section.Heading, section.Date, len(section.Links),
		)
	}

	sources := map[DateSource]int64{}
	out := make([]Dated, len(candidates))
	for i, c := range candidates {
		date, source := resolver.Resolve(c, sections)
		sources[source]++
		out[i] = Dated{Candidate: c, Date: date, Source: source}
	}
	for _, source := range []DateSource{SourceURL, SourceHeading, SourceRunDate} {
		e.tel.ReportCount(report_extractor_source+"."+source.String(), sources[source])
	}
	return out
}

// Build classifies and builds a record for every dated candidate. Records that
// violate the record invariants are reported and dropped.
func (e Extractor) Build(dated []Dated) []Record {
	records := make([]Record, 0, len(dated))
	for _, d := range dated {
		record := e.builder.Build(d.Candidate, Classify(d.Text), d.Date)
		if err := record.Validate(); err != nil {
			e.tel.ReportBroken(report_extractor_invalid, err)
			continue
		}
		records = append(records, record)
	}
	return records
}

// Extract runs every stage over sel and returns the records in document order.
func (e Extractor) Extract(sel *goquery.Selection) []Record {
	candidates := e.Locate(sel)
	if len(candidates) == 0 {
		return nil
	}
	return e.Build(e.Resolve(sel, candidates))
}
