package publisher

import (
	"context"
	"fmt"
	"rewardfeed/internal/components/assert"
	"rewardfeed/internal/components/chrono"
	"rewardfeed/internal/components/telemetry"
	"rewardfeed/internal/rewards"
	"rewardfeed/internal/store"
	"time"
)

const (
	report_publisher_publish = "publisher.publish"
	report_publisher_records = "publisher.records"
)

const (
	// LayoutTree writes spins and coins as two maps under a prefix.
	LayoutTree = "tree"
	// LayoutCollection writes every record into a single collection with a
	// sibling metadata document.
	LayoutCollection = "collection"

	DefaultPrefix     = "DB-1"
	DefaultCollection = "scraped_data"
)

// ReadableLayout is the en-US style layout of lastUpdatedReadable.
const ReadableLayout = "1/2/2006, 3:04:05 PM"

const (
	FieldLastUpdated         = "lastUpdated"
	FieldLastUpdatedReadable = "lastUpdatedReadable"
)

type Options struct {
	Layout     string `json:"layout"`
	Prefix     string `json:"prefix"`
	Collection string `json:"collection"`
}

func (o Options) WithDefaults() Options {
	if o.Layout == "" {
		o.Layout = LayoutTree
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.Collection == "" {
		o.Collection = DefaultCollection
	}
	return o
}

func (o Options) Validate() error {
	o = o.WithDefaults()
	switch o.Layout {
	case LayoutTree:
		_, err := store.CleanPath(o.Prefix)
		if err != nil {
			return fmt.Errorf("publisher prefix: %w", err)
		}
	case LayoutCollection:
		_, err := store.CleanPath(o.Collection)
		if err != nil {
			return fmt.Errorf("publisher collection: %w", err)
		}
	default:
		return fmt.Errorf("publisher: unknown layout %q", o.Layout)
	}
	return nil
}

// MetaPath is where lastUpdated and lastUpdatedReadable are written.
func (o Options) MetaPath() string {
	o = o.WithDefaults()
	if o.Layout == LayoutCollection {
		return o.Collection + "_meta"
	}
	return o.Prefix
}

// GroupPath is where the records of type t are written in the tree layout.
func (o Options) GroupPath(t rewards.RewardType) string {
	return store.Join(o.WithDefaults().Prefix, string(t))
}

// Publisher replaces the published snapshot with a new batch of records.
type Publisher struct {
	store store.Store
	opts  Options
	time  chrono.TimeAPI
	tel   telemetry.API
}

func New(s store.Store, opts Options, time chrono.TimeAPI, tel telemetry.API) Publisher {
	assert.NotNil(s)
	assert.NotNil(time)
	assert.NotNil(tel)
	return Publisher{
		store: s,
		opts:  opts.WithDefaults(),
		time:  time,
		tel:   telemetry.NewScopedAPI("publisher", tel),
	}
}

func recordMap(records []rewards.Record) map[string]rewards.Record {
	out := make(map[string]rewards.Record, len(records))
	for _, r := range records {
		out[r.ID] = r
	}
	return out
}

// Updates returns the multi path update that publishes records as of at.
// Both groups are always written so an empty group clears the previous one.
func (p Publisher) Updates(records []rewards.Record, at time.Time) map[string]any {
	meta := p.opts.MetaPath()
	updates := map[string]any{
		store.Join(meta, FieldLastUpdated):         at.UnixMilli(),
		store.Join(meta, FieldLastUpdatedReadable): at.In(p.time.Location()).Format(ReadableLayout),
	}

	if p.opts.Layout == LayoutCollection {
		updates[p.opts.Collection] = recordMap(records)
		return updates
	}

	var coins, spins []rewards.Record
	for _, r := range records {
		if r.Type == rewards.Coins {
			coins = append(coins, r)
			continue
		}
		spins = append(spins, r)
	}
	updates[p.opts.GroupPath(rewards.Coins)] = recordMap(coins)
	updates[p.opts.GroupPath(rewards.Spins)] = recordMap(spins)
	return updates
}

// Publish writes records in one atomic store update.
func (p Publisher) Publish(ctx context.Context, records []rewards.Record) error {
	err := p.store.Update(ctx, p.Updates(records, p.time.Now()))
	if err != nil {
		p.tel.ReportBroken(report_publisher_publish, err, len(records))
		return fmt.Errorf("publish %d records: %w", len(records), err)
	}
	p.tel.ReportCount(report_publisher_records, int64(len(records)))
	return nil
}
