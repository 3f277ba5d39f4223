package store

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func requireJSON(t *testing.T, s Store, path, expected string) {
	t.Helper()
	value, ok, err := s.Get(context.Background(), path)
	require.NoError(t, err)
	require.True(t, ok, path)
	require.JSONEq(t, expected, string(value), path)
}

func requireMissing(t *testing.T, s Store, path string) {
	t.Helper()
	_, ok, err := s.Get(context.Background(), path)
	require.NoError(t, err)
	require.False(t, ok, path)
}

// testStore runs the behavior every backend must share.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	requireMissing(t, s, "DB-1")

	err := s.Update(ctx, map[string]any{
		"DB-1/spins":       map[string]any{"a": map[string]any{"url": "https://rewards.coinmaster.com/a"}},
		"DB-1/coins":       map[string]any{},
		"DB-1/lastUpdated": int64(1770456600000),
	})
	require.NoError(t, err)

	requireJSON(t, s, "DB-1/lastUpdated", `1770456600000`)
	requireJSON(t, s, "/DB-1/", `{
		"spins": {"a": {"url": "https://rewards.coinmaster.com/a"}},
		"coins": {},
		"lastUpdated": 1770456600000
	}`)
	requireJSON(t, s, "DB-1/spins/a/url", `"https://rewards.coinmaster.com/a"`)
	requireMissing(t, s, "DB-1/spins/b")

	// replacing a subtree drops everything that was under it
	err = s.Update(ctx, map[string]any{
		"DB-1/spins": map[string]any{"b": map[string]any{"url": "https://rewards.coinmaster.com/b"}},
	})
	require.NoError(t, err)
	requireMissing(t, s, "DB-1/spins/a")
	requireJSON(t, s, "DB-1/spins", `{"b": {"url": "https://rewards.coinmaster.com/b"}}`)
	requireJSON(t, s, "DB-1/lastUpdated", `1770456600000`)

	// a write below an ancestor write overrides it
	err = s.Update(ctx, map[string]any{"other": map[string]any{"x": 1, "y": 2}})
	require.NoError(t, err)
	err = s.Update(ctx, map[string]any{"other/y": 3, "other/z": nil, "other/x": nil})
	require.NoError(t, err)
	requireJSON(t, s, "other", `{"y": 3}`)
	requireMissing(t, s, "other/x")

	err = s.Update(ctx, map[string]any{"other": nil})
	require.NoError(t, err)
	requireMissing(t, s, "other")
	requireMissing(t, s, "other/y")

	// invalid updates leave the store untouched
	err = s.Update(ctx, map[string]any{"DB-1/spins": nil, "DB-1/bad.path": 1})
	require.ErrorIs(t, err, ErrInvalidPath)
	err = s.Update(ctx, map[string]any{"DB-1/spins": nil, "DB-1": 1})
	require.ErrorIs(t, err, ErrOverlappingPaths)
	err = s.Update(ctx, map[string]any{"DB-1/spins": nil, "DB-1/coins": make(chan int)})
	require.Error(t, err)
	requireJSON(t, s, "DB-1/spins", `{"b": {"url": "https://rewards.coinmaster.com/b"}}`)

	// an empty update is a no-op on every backend
	require.NoError(t, s.Update(ctx, map[string]any{}))
	require.NoError(t, s.Update(ctx, nil))
	requireJSON(t, s, "DB-1/spins", `{"b": {"url": "https://rewards.coinmaster.com/b"}}`)

	_, _, err = s.Get(ctx, "a//b")
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	testStore(t, s)
	require.Equal(t, 5, s.Updates())
	require.NoError(t, s.Close())
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()
	testStore(t, s)
}

func TestSQLiteFile(t *testing.T) {
	path := t.TempDir() + "/data/rewards.db"

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	err = s.Update(context.Background(), map[string]any{"DB-1/lastUpdated": 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	requireJSON(t, s, "DB-1", `{"lastUpdated": 1}`)
}

func TestRedis(t *testing.T) {
	if os.Getenv("REWARDFEED_INTEGRATION") == "" {
		t.Skip("set REWARDFEED_INTEGRATION=1 to run against a redis container")
	}
	ctx := context.Background()

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
	})
	require.NoError(t, err)
	defer func() {
		err := container.Terminate(ctx)
		if err != nil {
			t.Fatal(err)
		}
	}()

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	s, err := OpenRedis(ctx, RedisConfig{Addr: addr, Key: "test"})
	require.NoError(t, err)
	defer s.Close()
	testStore(t, s)
}

func TestCleanPath(t *testing.T) {
	table := []struct {
		path     string
		expected string
		ok       bool
	}{
		{path: "DB-1/spins", expected: "DB-1/spins", ok: true},
		{path: "/scraped_data/", expected: "scraped_data", ok: true},
		{path: "scraped_data_meta/lastUpdatedReadable", expected: "scraped_data_meta/lastUpdatedReadable", ok: true},
		{path: "", ok: false},
		{path: "/", ok: false},
		{path: "a//b", ok: false},
		{path: "a/b.c", ok: false},
		{path: "a/#", ok: false},
		{path: "a/$b", ok: false},
		{path: "a/[0]", ok: false},
	}

	for _, row := range table {
		cleaned, err := CleanPath(row.path)
		if row.ok {
			require.NoError(t, err, row.path)
			require.Equal(t, row.expected, cleaned)
			continue
		}
		require.True(t, errors.Is(err, ErrInvalidPath), row.path)
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: DriverMemory})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	_, err = Open(context.Background(), Config{Driver: "firebase"})
	require.Error(t, err)
	require.Error(t, Config{Driver: DriverSQLite}.Validate())
	require.Error(t, Config{Driver: DriverLibsql}.Validate())
	require.Error(t, Config{Driver: DriverRedis}.Validate())
}

func TestAssembleKeepsNumbers(t *testing.T) {
	value, ok, err := assemble("a", []row{
		{path: "a/b", value: []byte(`9007199254740993`)},
		{path: "a", value: []byte(`{"c": true}`)},
	})
	require.NoError(t, err)
	require.True(t, ok)

	// b does not fit a float64 and must come back unchanged
	require.Equal(t, `{"b":9007199254740993,"c":true}`, string(value))
}
