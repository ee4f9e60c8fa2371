package domain

import "encoding/json"

// DriverInfo is the per-session driver metadata record. In race mode it is
// relayed as received: a decoded record re-encodes to the upstream bytes.
type DriverInfo struct {
	DriverNumber  int    `json:"driver_number"`
	FullName      string `json:"full_name,omitempty"`
	NameAcronym   string `json:"name_acronym,omitempty"`
	BroadcastName string `json:"broadcast_name,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	TeamName      string `json:"team_name,omitempty"`
	TeamColour    string `json:"team_colour,omitempty"`
	HeadshotURL   string `json:"headshot_url,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
	SessionKey    int    `json:"session_key,omitempty"`
	MeetingKey    int    `json:"meeting_key,omitempty"`

	raw json.RawMessage
}

func (d *DriverInfo) UnmarshalJSON(b []byte) error {
	type plain DriverInfo
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*d = DriverInfo(p)
	d.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (d DriverInfo) MarshalJSON() ([]byte, error) {
	if d.raw != nil {
		return d.raw, nil
	}
	type plain DriverInfo
	return json.Marshal(plain(d))
}

// DriverLapRecord is one completed (or partial) lap.
// Durations are in seconds; nil means the upstream did not report the value.
type DriverLapRecord struct {
	DriverNumber int      `json:"driver_number"`
	LapNumber    int      `json:"lap_number"`
	LapDuration  *float64 `json:"lap_duration"`
	Sector1      *float64 `json:"duration_sector_1"`
	Sector2      *float64 `json:"duration_sector_2"`
	Sector3      *float64 `json:"duration_sector_3"`
	IsPitOutLap  bool     `json:"is_pit_out_lap"`
	DateStart    string   `json:"date_start,omitempty"`
	SessionKey   int      `json:"session_key,omitempty"`
}

// Duration returns the usable lap time: the reported duration when positive,
// otherwise the sum of all three sectors when every one is present.
func (l DriverLapRecord) Duration() (float64, bool) {
	if l.LapDuration != nil && *l.LapDuration > 0 {
		return *l.LapDuration, true
	}
	if l.Sector1 == nil || l.Sector2 == nil || l.Sector3 == nil {
		return 0, false
	}
	sum := *l.Sector1 + *l.Sector2 + *l.Sector3
	if sum <= 0 {
		return 0, false
	}
	return sum, true
}
