package commands

import (
	"context"
	"log/slog"
	"rewardfeed/internal/components/telemetry"
	"rewardfeed/internal/store"
	"rewardfeed/internal/viewer"
	"rewardfeed/pkg/serviceutil"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveAddr *string

func init() {
	serveAddr = serveCmd.Flags().String("addr", "", "The address to listen on, overrides viewer.addr.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--addr <host:port>]",
	Short: "Serves the published reward links over http.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := LoadConfig(*configPath)
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		telemetry.InitSlog(cfg.Log, *verbose)
		if *serveAddr != "" {
			cfg.Viewer.Addr = *serveAddr
		}

		otel, err := telemetry.SetupOtel(ctx, serviceName+"-viewer", cfg.Telemetry)
		if err != nil {
			slog.Warn("failed to setup otel, continuing without it", "err", err.Error())
		}
		defer otel.Shutdown(context.WithoutCancel(ctx))

		s, err := store.Open(ctx, cfg.Store)
		if err != nil {
			serviceutil.Fatal("failed to open store", err)
		}
		defer s.Close()

		tel := telemetry.SlogAPI{}
		server := viewer.NewServer(viewer.NewReader(s, cfg.Publish), tel)

		group, ctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return server.ListenAndServe(ctx, cfg.Viewer.Addr)
		})
		if interval := cfg.Viewer.PerfStatsInterval(); interval > 0 {
			group.Go(func() error {
				return telemetry.RecordPerfStats(ctx, tel, interval)
			})
		}

		slog.Info("serving reward links", "addr", cfg.Viewer.Addr)
		err = group.Wait()
		if err != nil {
			serviceutil.Fatal("viewer stopped", err)
		}
	},
}
