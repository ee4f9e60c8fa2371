package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/pitwall/internal/config"
	"github.com/MrSnakeDoc/pitwall/internal/domain"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/sources/openf1"
)

func newStandingsCmd() *cobra.Command {
	var sessionKey int

	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Rank a session by best lap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionKey <= 0 {
				return errors.New("--session-key is required")
			}
			cfg := config.Load()
			client := openf1.New(cfg.OpenF1BaseURL, cfg.UpstreamTimeout, logger.New("error", true))

			laps := client.Laps(cmd.Context(), sessionKey)
			if len(laps) == 0 {
				return fmt.Errorf("no laps for session %d", sessionKey)
			}
			drivers := client.Drivers(cmd.Context(), sessionKey)
			renderStandings(cmd.OutOrStdout(), domain.DeriveStandings(laps, drivers))
			return nil
		},
	}
	cmd.Flags().IntVar(&sessionKey, "session-key", 0, "OpenF1 session key")
	return cmd
}

func renderStandings(w io.Writer, standings []domain.Standing) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Pos", "No.", "Driver", "Team", "Best", "Interval", "Gap"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for _, s := range standings {
		t.AppendRow(table.Row{
			s.Position, strconv.Itoa(s.DriverNumber), s.DriverName, s.TeamName,
			s.LapTime, s.Interval, s.Gap,
		})
	}
	t.Render()
}
