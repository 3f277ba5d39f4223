package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"rewardfeed/internal/components/chrono"
	"rewardfeed/internal/components/telemetry"
	"rewardfeed/internal/rewards"
	"rewardfeed/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var publishedAt = time.Date(2026, time.February, 7, 17, 5, 9, 0, time.UTC)

func fixedTime(t *testing.T) chrono.FixedTime {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return chrono.FixedTime{Time: publishedAt.In(la)}
}

var batch = []rewards.Record{
	{ID: "1", URL: "https://rewards.coinmaster.com/a", Title: "4M Coins", Type: rewards.Coins, Date: "2026-02-06", ScrapedAt: 1},
	{ID: "2", URL: "https://rewards.coinmaster.com/b", Title: "25 Spins", Type: rewards.Spins, Date: "2026-02-06", ScrapedAt: 1},
	{ID: "3", URL: "https://rewards.coinmaster.com/c", Title: "Free coins", Type: rewards.Coins, Date: "2026-02-07", ScrapedAt: 1},
}

func get[T any](t *testing.T, s store.Store, path string) T {
	t.Helper()
	raw, ok, err := s.Get(context.Background(), path)
	require.NoError(t, err)
	require.True(t, ok, path)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestPublishTree(t *testing.T) {
	s := store.NewMemory()
	tel := telemetry.NewRecorder()
	p := New(s, Options{}, fixedTime(t), tel)

	require.NoError(t, p.Publish(context.Background(), batch))
	require.Equal(t, 1, s.Updates())

	coins := get[map[string]rewards.Record](t, s, "DB-1/coins")
	diff := cmp.Diff(map[string]rewards.Record{"1": batch[0], "3": batch[2]}, coins)
	if diff != "" {
		t.Fatal(diff)
	}
	spins := get[map[string]rewards.Record](t, s, "DB-1/spins")
	require.Equal(t, map[string]rewards.Record{"2": batch[1]}, spins)

	require.Equal(t, publishedAt.UnixMilli(), get[int64](t, s, "DB-1/lastUpdated"))
	require.Equal(t, "2/7/2026, 9:05:09 AM", get[string](t, s, "DB-1/lastUpdatedReadable"))

	count, ok := tel.Count("publisher.records")
	require.True(t, ok)
	require.Equal(t, int64(3), count)

	// the next run only has spins, the previous coins must not survive
	require.NoError(t, p.Publish(context.Background(), batch[1:2]))
	require.Empty(t, get[map[string]rewards.Record](t, s, "DB-1/coins"))
	require.Len(t, get[map[string]rewards.Record](t, s, "DB-1/spins"), 1)
}

func TestPublishCollection(t *testing.T) {
	s := store.NewMemory()
	p := New(s, Options{Layout: LayoutCollection}, fixedTime(t), telemetry.NewRecorder())

	require.NoError(t, p.Publish(context.Background(), batch))

	all := get[map[string]rewards.Record](t, s, "scraped_data")
	require.Len(t, all, 3)
	require.Equal(t, batch[1], all["2"])
	require.Equal(t, publishedAt.UnixMilli(), get[int64](t, s, "scraped_data_meta/lastUpdated"))
	require.Equal(t, "scraped_data_meta", Options{Layout: LayoutCollection}.MetaPath())
}

type failingStore struct {
	store.Store
}

func (failingStore) Update(context.Context, map[string]any) error {
	return errors.New("connection reset")
}

func TestPublishFailure(t *testing.T) {
	tel := telemetry.NewRecorder()
	p := New(failingStore{Store: store.NewMemory()}, Options{}, fixedTime(t), tel)

	err := p.Publish(context.Background(), batch)
	require.ErrorContains(t, err, "connection reset")
	require.True(t, tel.Broken("publisher.publish"))
}

func TestOptions(t *testing.T) {
	require.NoError(t, Options{}.Validate())
	require.NoError(t, Options{Layout: LayoutCollection, Collection: "links"}.Validate())
	require.Error(t, Options{Layout: "firestore"}.Validate())
	require.Error(t, Options{Prefix: "DB.1"}.Validate())
	require.Equal(t, "DB-1/spins", Options{}.GroupPath(rewards.Spins))
}
