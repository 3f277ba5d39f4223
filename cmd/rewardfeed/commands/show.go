package commands

import (
	"io"
	"os"
	"rewardfeed/internal/store"
	"rewardfeed/internal/viewer"
	"rewardfeed/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

func renderSnapshot(out io.Writer, snapshot viewer.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Date", "Type", "Title", "Url"})
	for _, link := range snapshot.Links {
		t.AppendRow(table.Row{link.Date, link.Type, link.Title, link.URL})
	}
	lastUpdated := snapshot.LastUpdatedReadable
	if lastUpdated == "" {
		lastUpdated = "never"
	}
	t.AppendFooter(table.Row{"", "", "Last updated", lastUpdated})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the currently published reward links.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := LoadConfig(*configPath)
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}

		s, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			serviceutil.Fatal("failed to open store", err)
		}
		defer s.Close()

		snapshot, err := viewer.NewReader(s, cfg.Publish).Snapshot(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to read snapshot", err)
		}
		renderSnapshot(os.Stdout, snapshot)
	},
}
