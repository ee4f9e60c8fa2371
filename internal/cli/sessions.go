package cli

import (
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/pitwall/internal/config"
	"github.com/MrSnakeDoc/pitwall/internal/domain"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/sources/openf1"
)

func newSessionsCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions of a season",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			client := openf1.New(cfg.OpenF1BaseURL, cfg.UpstreamTimeout, logger.New("error", true))

			sessions := client.Sessions(cmd.Context(), domain.SessionFilter{Year: year})
			renderSessions(cmd.OutOrStdout(), sessions, time.Now())
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "season to list")
	return cmd
}

func renderSessions(w io.Writer, sessions []domain.Session, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Key", "Session", "Circuit", "Country", "Start (UTC)", "Mode", "Live"})

	for _, s := range sessions {
		start := "-"
		if s.Start != nil {
			start = s.Start.UTC().Format("2006-01-02 15:04")
		}
		live := ""
		if domain.IsLive(s, now) {
			live = "●"
		}
		t.AppendRow(table.Row{
			strconv.Itoa(s.Key), s.Name, s.CircuitShortName, s.CountryName,
			start, domain.ClassifySession(s).String(), live,
		})
	}
	t.AppendFooter(table.Row{"", strconv.Itoa(len(sessions)) + " sessions"})
	t.Render()
}
