package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rewardfeed/internal/components/chrono"
	"rewardfeed/internal/components/telemetry"
	"rewardfeed/internal/fetcher"
	"rewardfeed/internal/publisher"
	"rewardfeed/internal/rewards"
	"rewardfeed/internal/store"

	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>Coin Master Free Spins</title></head><body>
	<h2>February 6</h2>
	<ul>
		<li><a href="https://rewards.coinmaster.com/rewards/rewards.php?c=pe_A">4M Coins</a></li>
		<li><a href="https://coinmaster.onelink.me/Fj2c">Free coins and spins</a></li>
		<li><a href="https://rewards.coinmaster.com/rewards/rewards.php?c=pe_B">25 Spins</a></li>
	</ul>
</body></html>`

type recordingNotifier struct {
	subjects []string
}

func (n *recordingNotifier) Notify(_ context.Context, subject, _ string) error {
	n.subjects = append(n.subjects, subject)
	return nil
}

// refusingStore rejects updates once refuse is set.
type refusingStore struct {
	*store.Memory
	refuse bool
}

func (s *refusingStore) Update(ctx context.Context, updates map[string]any) error {
	if s.refuse {
		return errors.New("permission denied")
	}
	return s.Memory.Update(ctx, updates)
}

type fixture struct {
	store    *store.Memory
	notifier *recordingNotifier
	tel      *telemetry.Recorder
	runner   Runner
}

func setup(t *testing.T, status int, body string, s store.Store) fixture {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	memory := store.NewMemory()
	if s == nil {
		s = memory
	}
	tel := telemetry.NewRecorder()
	clock := chrono.FixedTime{Time: time.Date(2026, time.February, 7, 9, 30, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}

	runner := NewRunner(
		server.URL,
		fetcher.New(fetcher.Options{}, tel),
		rewards.NewExtractor(rewards.NewLocator(nil), clock, tel),
		publisher.New(s, publisher.Options{}, clock, tel),
		notifier,
		tel,
	)
	return fixture{store: memory, notifier: notifier, tel: tel, runner: runner}
}

func TestRunPublishes(t *testing.T) {
	f := setup(t, http.StatusOK, page, nil)

	result, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, ExitOK, ExitCode(err))
	require.Equal(t, StateDone, result.State)
	require.Equal(t, []State{
		StateFetching,
		StateExtracting,
		StateResolvingDates,
		StateBuilding,
		StatePublishing,
		StateDone,
	}, result.Transitions)
	require.Equal(t, "Coin Master Free Spins", result.PageTitle)
	require.Len(t, result.Records, 3)

	require.Equal(t, 1, f.store.Updates())
	_, ok, err := f.store.Get(context.Background(), "DB-1/coins")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, f.notifier.subjects)
}

func TestRunUnavailable(t *testing.T) {
	f := setup(t, http.StatusServiceUnavailable, "<html>just a moment</html>", nil)

	result, err := f.runner.Run(context.Background())
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, fetcher.KindStatus, fetchErr.Kind())
	require.Equal(t, ExitFetch, ExitCode(err))

	require.Equal(t, StateFailed, result.State)
	require.Equal(t, []State{StateFetching, StateFailed}, result.Transitions)
	require.Equal(t, 0, f.store.Updates())
	require.Len(t, f.notifier.subjects, 1)
	require.True(t, f.tel.Broken("runner.run"))
}

func TestRunNoLinks(t *testing.T) {
	f := setup(t, http.StatusOK, `<html><body><h2>February 6</h2><p>come back later</p></body></html>`, nil)

	result, err := f.runner.Run(context.Background())
	require.ErrorIs(t, err, ErrNoLinksFound)
	require.Equal(t, ExitOK, ExitCode(err))
	require.Equal(t, StateNoLinks, result.State)
	require.True(t, result.State.Terminal())
	require.Equal(t, 0, f.store.Updates())
	require.Empty(t, f.notifier.subjects)
	require.False(t, f.tel.Broken(""))
}

func TestRunPublishFailure(t *testing.T) {
	ctx := context.Background()
	s := &refusingStore{Memory: store.NewMemory()}
	f := setup(t, http.StatusOK, page, s)

	_, err := f.runner.Run(ctx)
	require.NoError(t, err)
	published, ok, err := s.Get(ctx, "DB-1")
	require.NoError(t, err)
	require.True(t, ok)

	s.refuse = true
	result, err := f.runner.Run(ctx)
	var publishErr *PublishError
	require.True(t, errors.As(err, &publishErr))
	require.Equal(t, ExitPublish, ExitCode(err))
	require.Equal(t, StateFailed, result.State)
	require.Equal(t, StatePublishing, result.Transitions[len(result.Transitions)-2])
	require.Len(t, f.notifier.subjects, 1)

	// the previous snapshot stays visible
	current, ok, err := s.Get(ctx, "DB-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, string(published), string(current))
	require.Equal(t, 1, s.Updates())
}

func TestNotifyFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	err := NotifyFailure(
		context.Background(),
		notifier,
		"https://levvvel.com/coin-master-free-spins",
		[]State{StateFetching, StateFailed},
		&FetchError{Err: errors.New("dns")},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"rewardfeed run failed (exit 3)"}, notifier.subjects)
}

func TestExitCode(t *testing.T) {
	require.Equal(t, ExitOK, ExitCode(nil))
	require.Equal(t, ExitOK, ExitCode(fmt.Errorf("run: %w", ErrNoLinksFound)))
	require.Equal(t, ExitConfiguration, ExitCode(&ConfigurationError{Err: errors.New("bad zone")}))
	require.Equal(t, ExitFetch, ExitCode(fmt.Errorf("run: %w", &FetchError{Err: errors.New("dns")})))
	require.Equal(t, ExitPublish, ExitCode(&PublishError{Err: errors.New("denied")}))
	require.Equal(t, ExitUnknown, ExitCode(errors.New("something else")))
}
