package viewer

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"rewardfeed/internal/components/assert"
	"rewardfeed/internal/publisher"
	"rewardfeed/internal/rewards"
	"rewardfeed/internal/store"
	"slices"
)

// Snapshot is the published set of reward links.
type Snapshot struct {
	Links               []rewards.Record `json:"links"`
	LastUpdated         int64            `json:"lastUpdated"`
	LastUpdatedReadable string           `json:"lastUpdatedReadable"`
}

type meta struct {
	LastUpdated         int64  `json:"lastUpdated"`
	LastUpdatedReadable string `json:"lastUpdatedReadable"`
}

type tree struct {
	meta
	Spins map[string]rewards.Record `json:"spins"`
	Coins map[string]rewards.Record `json:"coins"`
}

// Reader reads the snapshot a publisher with the same options wrote.
type Reader struct {
	store store.Store
	opts  publisher.Options
}

func NewReader(s store.Store, opts publisher.Options) Reader {
	assert.NotNil(s)
	return Reader{store: s, opts: opts.WithDefaults()}
}

func (r Reader) read(ctx context.Context, path string, out any) error {
	raw, ok, err := r.store.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !ok {
		return nil
	}
	err = json.Unmarshal(raw, out)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Snapshot returns every published link, newest date first, then by type and
// title. Nothing published yet is an empty snapshot.
func (r Reader) Snapshot(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot

	switch r.opts.Layout {
	case publisher.LayoutCollection:
		var records map[string]rewards.Record
		err := r.read(ctx, r.opts.Collection, &records)
		if err != nil {
			return Snapshot{}, err
		}
		var m meta
		err = r.read(ctx, r.opts.MetaPath(), &m)
		if err != nil {
			return Snapshot{}, err
		}
		for _, record := range records {
			snapshot.Links = append(snapshot.Links, record)
		}
		snapshot.LastUpdated = m.LastUpdated
		snapshot.LastUpdatedReadable = m.LastUpdatedReadable
	default:
		var t tree
		err := r.read(ctx, r.opts.Prefix, &t)
		if err != nil {
			return Snapshot{}, err
		}
		for _, record := range t.Spins {
			snapshot.Links = append(snapshot.Links, record)
		}
		for _, record := range t.Coins {
			snapshot.Links = append(snapshot.Links, record)
		}
		snapshot.LastUpdated = t.LastUpdated
		snapshot.LastUpdatedReadable = t.LastUpdatedReadable
	}

	slices.SortFunc(snapshot.Links, func(a, b rewards.Record) int {
		return cmp.Or(
			cmp.Compare(b.Date, a.Date),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.URL, b.URL),
			cmp.Compare(a.ID, b.ID),
		)
	})
	if snapshot.Links == nil {
		snapshot.Links = []rewards.Record{}
	}
	return snapshot, nil
}
