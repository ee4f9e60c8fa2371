package jolpica

// Upstream types follow the Ergast schema: numbers arrive as strings and are
// passed through untouched.

type Driver struct {
	DriverID        string `json:"driverId"`
	PermanentNumber string `json:"permanentNumber,omitempty"`
	Code            string `json:"code,omitempty"`
	GivenName       string `json:"givenName"`
	FamilyName      string `json:"familyName"`
	DateOfBirth     string `json:"dateOfBirth,omitempty"`
	Nationality     string `json:"nationality,omitempty"`
	URL             string `json:"url,omitempty"`
}

func (d Driver) FullName() string {
	return d.GivenName + " " + d.FamilyName
}

type Constructor struct {
	ConstructorID string `json:"constructorId"`
	Name          string `json:"name"`
	Nationality   string `json:"nationality,omitempty"`
	URL           string `json:"url,omitempty"`
}

type DriverStanding struct {
	Position     string        `json:"position"`
	PositionText string        `json:"positionText,omitempty"`
	Points       string        `json:"points"`
	Wins         string        `json:"wins"`
	Driver       Driver        `json:"Driver"`
	Constructors []Constructor `json:"Constructors"`
}

type ConstructorStanding struct {
	Position     string      `json:"position"`
	PositionText string      `json:"positionText,omitempty"`
	Points       string      `json:"points"`
	Wins         string      `json:"wins"`
	Constructor  Constructor `json:"Constructor"`
}

type StandingsList struct {
	Season               string                `json:"season"`
	Round                string                `json:"round"`
	DriverStandings      []DriverStanding      `json:"DriverStandings,omitempty"`
	ConstructorStandings []ConstructorStanding `json:"ConstructorStandings,omitempty"`
}

type Location struct {
	Locality string `json:"locality"`
	Country  string `json:"country"`
}

type Circuit struct {
	CircuitID   string   `json:"circuitId"`
	CircuitName string   `json:"circuitName"`
	Location    Location `json:"Location"`
}

type ResultTime struct {
	Millis string `json:"millis,omitempty"`
	Time   string `json:"time"`
}

type FastestLap struct {
	Rank string     `json:"rank"`
	Lap  string     `json:"lap"`
	Time ResultTime `json:"Time"`
}

type Result struct {
	Number       string      `json:"number"`
	Position     string      `json:"position"`
	PositionText string      `json:"positionText,omitempty"`
	Points       string      `json:"points"`
	Driver       Driver      `json:"Driver"`
	Constructor  Constructor `json:"Constructor"`
	Grid         string      `json:"grid"`
	Laps         string      `json:"laps"`
	Status       string      `json:"status"`
	Time         *ResultTime `json:"Time,omitempty"`
	FastestLap   *FastestLap `json:"FastestLap,omitempty"`
}

type QualifyingResult struct {
	Number      string      `json:"number"`
	Position    string      `json:"position"`
	Driver      Driver      `json:"Driver"`
	Constructor Constructor `json:"Constructor"`
	Q1          string      `json:"Q1,omitempty"`
	Q2          string      `json:"Q2,omitempty"`
	Q3          string      `json:"Q3,omitempty"`
}

type Race struct {
	Season            string             `json:"season"`
	Round             string             `json:"round"`
	RaceName          string             `json:"raceName"`
	Circuit           Circuit            `json:"Circuit"`
	Date              string             `json:"date"`
	Time              string             `json:"time,omitempty"`
	Results           []Result           `json:"Results,omitempty"`
	QualifyingResults []QualifyingResult `json:"QualifyingResults,omitempty"`
}

// Champion pairs the drivers' and constructors' champions of one season.
type Champion struct {
	Year                int     `json:"year"`
	Driver              string  `json:"driver"`
	DriverID            string  `json:"driverId"`
	Team                string  `json:"team"`
	ConstructorID       string  `json:"constructorId"`
	Points              float64 `json:"points"`
	Wins                int     `json:"wins"`
	ConstructorChampion string  `json:"constructorChampion"`
	ConstructorPoints   float64 `json:"constructorPoints"`
	ConstructorWins     int     `json:"constructorWins"`
}

type envelope struct {
	MRData struct {
		StandingsTable struct {
			Season         string          `json:"season"`
			StandingsLists []StandingsList `json:"StandingsLists"`
		} `json:"StandingsTable"`
		RaceTable struct {
			Season string `json:"season"`
			Round  string `json:"round"`
			Races  []Race `json:"Races"`
		} `json:"RaceTable"`
	} `json:"MRData"`
}

func (e *envelope) standings() StandingsList {
	if lists := e.MRData.StandingsTable.StandingsLists; len(lists) > 0 {
		return lists[0]
	}
	return StandingsList{}
}

func (e *envelope) race() *Race {
	if races := e.MRData.RaceTable.Races; len(races) > 0 {
		return &races[0]
	}
	return nil
}
