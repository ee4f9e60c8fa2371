package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/pitwall/internal/domain"
)

func TestRenderSessions(t *testing.T) {
	start := time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	sessions := []domain.Session{
		{Key: 9472, Name: "Practice 1", CircuitShortName: "Sakhir", CountryName: "Bahrain"},
		{Key: 9480, Name: "Race", CircuitShortName: "Sakhir", CountryName: "Bahrain", Start: &start, End: &end},
	}

	var buf bytes.Buffer
	renderSessions(&buf, sessions, start.Add(time.Hour))
	out := buf.String()

	for _, want := range []string{"9472", "practice", "9480", "2024-03-02 15:00", "race", "●", "2 sessions"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "●") != 1 {
		t.Errorf("only the race is live:\n%s", out)
	}
}

func TestRenderStandings(t *testing.T) {
	standings := []domain.Standing{
		{Position: 1, DriverNumber: 1, DriverName: "Max VERSTAPPEN", TeamName: "Red Bull Racing", LapTime: "1:29.500", Interval: "-", Gap: "-"},
		{Position: 2, DriverNumber: 16, DriverName: "Charles LECLERC", TeamName: "Ferrari", LapTime: "1:30.000", Interval: "+0.500", Gap: "+0.500"},
	}

	var buf bytes.Buffer
	renderStandings(&buf, standings)
	out := buf.String()

	if !strings.Contains(out, "Max VERSTAPPEN") || !strings.Contains(out, "+0.500") || !strings.Contains(out, "1:29.500") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if strings.Index(out, "VERSTAPPEN") > strings.Index(out, "LECLERC") {
		t.Errorf("rows out of order:\n%s", out)
	}
}

func TestSessionsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions" || r.URL.Query().Get("year") != "2023" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = fmt.Fprint(w, `[{"session_key": 9158, "session_name": "Qualifying", "circuit_short_name": "Sakhir"}]`)
	}))
	defer srv.Close()
	t.Setenv("PITWALL_OPENF1_URL", srv.URL)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sessions", "--year", "2023"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "9158") || !strings.Contains(out.String(), "qualifying") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestStandingsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/laps":
			_, _ = fmt.Fprint(w, `[
				{"driver_number": 1, "lap_number": 2, "lap_duration": 91.2},
				{"driver_number": 16, "lap_number": 2, "lap_duration": 89.5}
			]`)
		case "/drivers":
			_, _ = fmt.Fprint(w, `[{"driver_number": 16, "full_name": "Charles LECLERC", "team_name": "Ferrari"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	t.Setenv("PITWALL_OPENF1_URL", srv.URL)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"standings", "--session-key", "9158"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Charles LECLERC") || !strings.Contains(got, "+1.700") {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestStandingsRequiresSessionKey(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"standings"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "--session-key") {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestConfigFlagRejectsMissingFile(t *testing.T) {
	t.Setenv("PITWALL_CONFIG_FILE", "")
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", t.TempDir() + "/missing.yaml", "standings", "--session-key", "1"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "config file") {
		t.Errorf("Execute() error = %v", err)
	}
}
