package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rewardfeed/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL
}

func TestFetch(t *testing.T) {
	var userAgent string
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("user-agent")
		w.Header().Set("content-type", "text/html")
		w.Write([]byte(`<html><head><title> Coin Master
			Free Spins </title></head><body><a href="https://rewards.coinmaster.com/a">a</a></body></html>`))
	})

	tel := telemetry.NewRecorder()
	page, err := New(Options{}, tel).Fetch(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, "Coin Master Free Spins", page.Title)
	require.Equal(t, 1, page.Doc.Find("a").Length())
	require.Greater(t, page.Size, 0)
	require.NotEmpty(t, userAgent)
	require.False(t, tel.Broken(""))
}

func TestFetchErrors(t *testing.T) {
	table := []struct {
		name    string
		handler http.HandlerFunc
		kind    ErrorKind
		status  int
	}{
		{
			name: "unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("<html>just a moment</html>"))
			},
			kind:   KindStatus,
			status: http.StatusServiceUnavailable,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			kind:   KindStatus,
			status: http.StatusNotFound,
		},
		{
			name: "empty",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("  \n"))
			},
			kind:   KindEmptyBody,
			status: http.StatusOK,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			tel := telemetry.NewRecorder()
			_, err := New(Options{}, tel).Fetch(context.Background(), serve(t, row.handler))
			require.Error(t, err)

			var fetchErr *Error
			require.True(t, errors.As(err, &fetchErr))
			require.Equal(t, row.kind, fetchErr.Kind)
			require.Equal(t, row.status, fetchErr.StatusCode)
			require.True(t, tel.Broken("fetcher.fetch"))
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	_, err := New(Options{Timeout: 20 * time.Millisecond}, telemetry.NewRecorder()).Fetch(context.Background(), url)
	var fetchErr *Error
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, KindTransport, fetchErr.Kind)
	require.Equal(t, "transport", fetchErr.Kind.String())
}
