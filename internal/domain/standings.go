package domain

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	UnknownTeam       = "Unknown"
	DefaultTeamColour = "888888"

	noLapTime  = "N/A"
	leaderMark = "-"
)

var sixty = decimal.NewFromInt(60)

// BestLap is a driver's fastest valid lap in seconds.
type BestLap struct {
	DriverNumber int
	Duration     float64
}

// Standing is one ranked row of a practice or qualifying classification.
type Standing struct {
	Position     int     `json:"position"`
	DriverNumber int     `json:"driverNumber"`
	DriverName   string  `json:"driverName"`
	Acronym      string  `json:"acronym"`
	TeamName     string  `json:"teamName"`
	TeamColour   string  `json:"teamColour"`
	BestLap      float64 `json:"bestLap"`
	LapTime      string  `json:"lapTime"`
	Interval     string  `json:"interval"`
	Gap          string  `json:"gap"`
}

// BestLapPerDriver keeps the minimum valid duration per driver.
// Drivers appear in the order of their first lap record.
func BestLapPerDriver(laps []DriverLapRecord) []BestLap {
	index := make(map[int]int, 24)
	out := make([]BestLap, 0, 24)
	for _, lap := range laps {
		d, ok := lap.Duration()
		if !ok {
			continue
		}
		i, seen := index[lap.DriverNumber]
		if !seen {
			index[lap.DriverNumber] = len(out)
			out = append(out, BestLap{DriverNumber: lap.DriverNumber, Duration: d})
			continue
		}
		if d < out[i].Duration {
			out[i].Duration = d
		}
	}
	return out
}

// RankStandings sorts best laps ascending (stable) and assigns dense positions.
// Interval and gap are left empty, see AttachGaps.
func RankStandings(best []BestLap, drivers map[int]DriverInfo) []Standing {
	sorted := slices.Clone(best)
	slices.SortStableFunc(sorted, func(a, b BestLap) int {
		return cmp.Compare(a.Duration, b.Duration)
	})

	standings := make([]Standing, 0, len(sorted))
	for i, b := range sorted {
		info, ok := drivers[b.DriverNumber]
		if !ok {
			info = DriverInfo{DriverNumber: b.DriverNumber}
		}
		standings = append(standings, Standing{
			Position:     i + 1,
			DriverNumber: b.DriverNumber,
			DriverName:   displayName(info),
			Acronym:      info.NameAcronym,
			TeamName:     lo.CoalesceOrEmpty(info.TeamName, UnknownTeam),
			TeamColour:   lo.CoalesceOrEmpty(info.TeamColour, DefaultTeamColour),
			BestLap:      b.Duration,
			LapTime:      FormatLapTime(b.Duration),
		})
	}
	return standings
}

func displayName(info DriverInfo) string {
	if name := strings.TrimSpace(info.FullName); name != "" {
		return name
	}
	if info.NameAcronym != "" {
		return info.NameAcronym
	}
	return strconv.Itoa(info.DriverNumber)
}

// AttachGaps fills interval (to the car ahead) and gap (to the leader) in place.
func AttachGaps(standings []Standing) []Standing {
	for i := range standings {
		if i == 0 {
			standings[i].Interval = leaderMark
			standings[i].Gap = leaderMark
			continue
		}
		standings[i].Interval = FormatInterval(standings[i].BestLap - standings[i-1].BestLap)
		standings[i].Gap = FormatInterval(standings[i].BestLap - standings[0].BestLap)
	}
	return standings
}

// DeriveStandings turns raw laps into a ranked classification with gaps.
func DeriveStandings(laps []DriverLapRecord, drivers []DriverInfo) []Standing {
	lookup := lo.KeyBy(drivers, func(d DriverInfo) int { return d.DriverNumber })
	return AttachGaps(RankStandings(BestLapPerDriver(laps), lookup))
}

// FormatLapTime renders seconds as m:ss.fff, e.g. 83.456 -> "1:23.456".
// Zero counts as missing and renders "N/A". Rounding works on the shortest
// decimal form of the float, half away from zero: 60.0005 -> "1:00.001".
func FormatLapTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return noLapTime
	}
	d := decimal.NewFromFloat(seconds)
	minutes := d.Div(sixty).Floor()
	rest := d.Sub(minutes.Mul(sixty)).StringFixed(3)
	if len(rest) < 6 {
		rest = strings.Repeat("0", 6-len(rest)) + rest
	}
	return minutes.String() + ":" + rest
}

// FormatInterval renders a time delta as "+s.fff" without padding, rounded
// like FormatLapTime. The sign is not inspected.
func FormatInterval(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return leaderMark
	}
	return "+" + decimal.NewFromFloat(seconds).StringFixed(3)
}
