package jolpica

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MrSnakeDoc/pitwall/internal/logger"
)

func newTestClient(t *testing.T, limit int, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, time.Second, limit, logger.NewNop())
}

const driverStandingsBody = `{"MRData":{"StandingsTable":{"season":"2023","StandingsLists":[{"season":"2023","round":"22","DriverStandings":[
	{"position":"1","points":"575","wins":"19","Driver":{"driverId":"max_verstappen","givenName":"Max","familyName":"Verstappen"},"Constructors":[{"constructorId":"red_bull","name":"Red Bull"}]},
	{"position":"2","points":"285","wins":"2","Driver":{"driverId":"perez","givenName":"Sergio","familyName":"Pérez"},"Constructors":[{"constructorId":"red_bull","name":"Red Bull"}]}
]}]}}}`

const constructorStandingsBody = `{"MRData":{"StandingsTable":{"season":"2023","StandingsLists":[{"season":"2023","round":"22","ConstructorStandings":[
	{"position":"1","points":"860","wins":"21","Constructor":{"constructorId":"red_bull","name":"Red Bull"}}
]}]}}}`

func TestDriverStandings(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2023/driverStandings.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = fmt.Fprint(w, driverStandingsBody)
	})

	got, err := c.DriverStandings(context.Background(), "2023")
	if err != nil {
		t.Fatalf("DriverStandings() error = %v", err)
	}
	if len(got) != 2 || got[0].Driver.FullName() != "Max Verstappen" || got[1].Points != "285" {
		t.Errorf("DriverStandings() = %+v", got)
	}
}

func TestStandingsEmptySeason(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"MRData":{"StandingsTable":{"season":"2031","StandingsLists":[]}}}`)
	})

	drivers, err := c.DriverStandings(context.Background(), "2031")
	if err != nil || drivers == nil || len(drivers) != 0 {
		t.Errorf("DriverStandings() = %v, %v; want empty, nil", drivers, err)
	}
	teams, err := c.ConstructorStandings(context.Background(), "2031")
	if err != nil || teams == nil || len(teams) != 0 {
		t.Errorf("ConstructorStandings() = %v, %v; want empty, nil", teams, err)
	}
}

func TestRaceResults(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2024/1/results.json":
			_, _ = fmt.Fprint(w, `{"MRData":{"RaceTable":{"season":"2024","round":"1","Races":[{"season":"2024","round":"1","raceName":"Bahrain Grand Prix",
				"Circuit":{"circuitId":"bahrain","circuitName":"Bahrain International Circuit","Location":{"locality":"Sakhir","country":"Bahrain"}},
				"date":"2024-03-02","Results":[{"number":"1","position":"1","points":"26","Driver":{"driverId":"max_verstappen","givenName":"Max","familyName":"Verstappen"},
				"Constructor":{"constructorId":"red_bull","name":"Red Bull"},"grid":"1","laps":"57","status":"Finished","Time":{"millis":"5504742","time":"1:31:44.742"},
				"FastestLap":{"rank":"1","lap":"39","Time":{"time":"1:32.608"}}}]}]}}}`)
		case "/2024/30/results.json":
			_, _ = fmt.Fprint(w, `{"MRData":{"RaceTable":{"season":"2024","round":"30","Races":[]}}}`)
		default:
			http.NotFound(w, r)
		}
	})

	race, err := c.RaceResults(context.Background(), "2024", "1")
	if err != nil {
		t.Fatalf("RaceResults() error = %v", err)
	}
	if race == nil || race.RaceName != "Bahrain Grand Prix" || len(race.Results) != 1 {
		t.Fatalf("RaceResults() = %+v", race)
	}
	if race.Results[0].FastestLap == nil || race.Results[0].FastestLap.Time.Time != "1:32.608" {
		t.Errorf("fastest lap not decoded: %+v", race.Results[0].FastestLap)
	}

	missing, err := c.RaceResults(context.Background(), "2024", "30")
	if err != nil || missing != nil {
		t.Errorf("RaceResults() for a future round = %+v, %v; want nil, nil", missing, err)
	}
}

func TestQualifyingResults(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2024/1/qualifying.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = fmt.Fprint(w, `{"MRData":{"RaceTable":{"Races":[{"season":"2024","round":"1","raceName":"Bahrain Grand Prix",
			"QualifyingResults":[{"number":"1","position":"1","Driver":{"driverId":"max_verstappen"},"Constructor":{"name":"Red Bull"},"Q1":"1:30.031","Q2":"1:29.374","Q3":"1:29.179"}]}]}}}`)
	})

	race, err := c.QualifyingResults(context.Background(), "2024", "1")
	if err != nil {
		t.Fatalf("QualifyingResults() error = %v", err)
	}
	if race == nil || len(race.QualifyingResults) != 1 || race.QualifyingResults[0].Q3 != "1:29.179" {
		t.Errorf("QualifyingResults() = %+v", race)
	}
}

func TestErrorsAreReturned(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.DriverStandings(context.Background(), "2023")
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadGateway {
			t.Errorf("error = %v, want StatusError 502", err)
		}
	})

	t.Run("decode", func(t *testing.T) {
		c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, `<html>`)
		})
		if _, err := c.ConstructorStandings(context.Background(), "2023"); err == nil {
			t.Error("expected a decode error")
		}
	})
}

func TestBudgetExhaustion(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, 2, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, driverStandingsBody)
	})

	for i := range 2 {
		if _, err := c.DriverStandings(context.Background(), "2023"); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if got := c.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}
	if _, err := c.DriverStandings(context.Background(), "2023"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third request error = %v, want ErrRateLimited", err)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream saw %d requests, want 2", hits.Load())
	}
}

func TestBudgetWindowResets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newBudget(1, time.Hour)
	b.now = func() time.Time { return now }

	if !b.take() {
		t.Fatal("first take refused")
	}
	if b.take() {
		t.Fatal("second take allowed inside the window")
	}
	now = now.Add(time.Hour)
	if !b.take() {
		t.Fatal("take refused after the window expired")
	}

	unlimited := newBudget(0, time.Hour)
	for range 1000 {
		if !unlimited.take() {
			t.Fatal("disabled budget refused a request")
		}
	}
	if unlimited.remaining() != -1 {
		t.Errorf("remaining() = %d for a disabled budget", unlimited.remaining())
	}
}

func TestChampionshipWinners(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/2022/"):
			w.WriteHeader(http.StatusInternalServerError)
		case strings.HasSuffix(r.URL.Path, "/driverStandings/1.json"):
			_, _ = fmt.Fprint(w, driverStandingsBody)
		case strings.HasSuffix(r.URL.Path, "/constructorStandings/1.json"):
			_, _ = fmt.Fprint(w, constructorStandingsBody)
		default:
			http.NotFound(w, r)
		}
	})

	got, err := c.ChampionshipWinners(context.Background(), 2021, 2023)
	if err != nil {
		t.Fatalf("ChampionshipWinners() error = %v", err)
	}

	want := []Champion{
		{Year: 2023, Driver: "Max Verstappen", DriverID: "max_verstappen", Team: "Red Bull", ConstructorID: "red_bull",
			Points: 575, Wins: 19, ConstructorChampion: "Red Bull", ConstructorPoints: 860, ConstructorWins: 21},
		{Year: 2021, Driver: "Max Verstappen", DriverID: "max_verstappen", Team: "Red Bull", ConstructorID: "red_bull",
			Points: 575, Wins: 19, ConstructorChampion: "Red Bull", ConstructorPoints: 860, ConstructorWins: 21},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChampionshipWinners() mismatch (-want +got):\n%s", diff)
	}
}

func TestChampionshipWinnersBeforeConstructorsTitle(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/driverStandings/1.json") {
			_, _ = fmt.Fprint(w, `{"MRData":{"StandingsTable":{"season":"1957","StandingsLists":[{"season":"1957","round":"8","DriverStandings":[
	{"position":"1","points":"40","wins":"4","Driver":{"driverId":"fangio","givenName":"Juan","familyName":"Fangio"},"Constructors":[{"constructorId":"maserati","name":"Maserati"}]}
]}]}}}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"MRData":{"StandingsTable":{"season":"1957","StandingsLists":[]}}}`)
	})

	got, err := c.ChampionshipWinners(context.Background(), 1957, 1957)
	if err != nil {
		t.Fatalf("ChampionshipWinners() error = %v", err)
	}

	want := []Champion{
		{Year: 1957, Driver: "Juan Fangio", DriverID: "fangio", Team: "Maserati", ConstructorID: "maserati", Points: 40, Wins: 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChampionshipWinners() mismatch (-want +got):\n%s", diff)
	}
}

func TestChampionshipWinnersRange(t *testing.T) {
	c := New("http://127.0.0.1:0", time.Second, 0, logger.NewNop())

	for _, tc := range [][2]int{{2024, 2020}, {0, 2020}, {1950, 2024}} {
		if _, err := c.ChampionshipWinners(context.Background(), tc[0], tc[1]); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("ChampionshipWinners(%d, %d) error = %v, want ErrInvalidRange", tc[0], tc[1], err)
		}
	}
}

func TestChampionshipWinnersOutOfBudget(t *testing.T) {
	c := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "driverStandings") {
			_, _ = fmt.Fprint(w, driverStandingsBody)
			return
		}
		_, _ = fmt.Fprint(w, constructorStandingsBody)
	})

	if _, err := c.ChampionshipWinners(context.Background(), 2020, 2023); !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestParsePoints(t *testing.T) {
	tests := map[string]float64{"25": 25, "12.5": 12.5, "": 0, "n/a": 0}
	for in, want := range tests {
		if got := parsePoints(in); got != want {
			t.Errorf("parsePoints(%q) = %v, want %v", in, got, want)
		}
	}
}
