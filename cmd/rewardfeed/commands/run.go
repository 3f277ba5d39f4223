package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"rewardfeed/internal/alert"
	"rewardfeed/internal/components/chrono"
	"rewardfeed/internal/components/telemetry"
	"rewardfeed/internal/fetcher"
	"rewardfeed/internal/harvest"
	"rewardfeed/internal/publisher"
	"rewardfeed/internal/rewards"
	"rewardfeed/internal/store"
	"time"

	"github.com/spf13/cobra"
)

const serviceName = "rewardfeed"

var dryRun *bool

func init() {
	dryRun = runCmd.Flags().Bool("dry-run", false, "Publish into an in-memory store instead of the configured one.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--dry-run]",
	Short: "Harvests the source page once and publishes the reward links.",
	Long: `Harvests the source page once and publishes the reward links.

Exit codes: 0 published or no links found, 2 configuration error,
3 fetch error, 4 publish error, 1 anything else.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(harvest.ExitCode(runOnce(cmd.Context())))
	},
}

func runOnce(ctx context.Context) error {
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		err = &harvest.ConfigurationError{Err: err}
		slog.Error("failed to load config", "err", err.Error())
		return err
	}
	telemetry.InitSlog(cfg.Log, *verbose)

	otel, err := telemetry.SetupOtel(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		slog.Warn("failed to setup otel, continuing without it", "err", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		otel.Shutdown(shutdownCtx)
	}()

	clock, err := chrono.NewStandardTime(cfg.TimeZone)
	if err != nil {
		return &harvest.ConfigurationError{Err: err}
	}

	push := telemetry.NewPushAPI(telemetry.SlogAPI{})
	var tel telemetry.API = push

	var notifier harvest.Notifier = alert.Noop{}
	if cfg.Alert.Enabled() {
		notifier = alert.NewSmtp(cfg.Alert)
	}

	var s store.Store = store.NewMemory()
	if !*dryRun {
		s, err = openStore(ctx, cfg, notifier)
		if err != nil {
			return err
		}
	}
	defer s.Close()

	runner := harvest.NewRunner(
		cfg.Source.Url,
		fetcher.New(cfg.Source.FetcherOptions(), tel),
		rewards.NewExtractor(rewards.NewLocator(cfg.Source.Prefixes), clock, tel),
		publisher.New(s, cfg.Publish, clock, tel),
		notifier,
		tel,
	)

	result, err := runner.Run(ctx)
	switch {
	case err == nil:
		slog.Info("published reward links", "records", len(result.Records), "page_title", result.PageTitle)
	case errors.Is(err, harvest.ErrNoLinksFound):
		slog.Info("no reward links found, nothing published", "page_title", result.PageTitle)
	default:
		slog.Error("run failed", "state", string(result.State), "err", err.Error())
	}

	if cfg.Pushgateway != "" {
		pushErr := push.Push(context.WithoutCancel(ctx), cfg.Pushgateway, serviceName)
		if pushErr != nil {
			slog.Warn("failed to push run metrics", "err", pushErr.Error())
		}
	}

	return err
}

// openStore opens the configured store, a failure fails the run before
// anything is fetched and is alerted like any other failed run.
func openStore(ctx context.Context, cfg Config, notifier harvest.Notifier) (store.Store, error) {
	s, err := store.Open(ctx, cfg.Store)
	if err == nil {
		return s, nil
	}

	err = &harvest.PublishError{Err: err}
	slog.Error("failed to open store", "driver", cfg.Store.Driver, "err", err.Error())
	notifyErr := harvest.NotifyFailure(ctx, notifier, cfg.Source.Url, []harvest.State{harvest.StateFailed}, err)
	if notifyErr != nil {
		slog.Warn("failed to send failure alert", "err", notifyErr.Error())
	}
	return nil, err
}
