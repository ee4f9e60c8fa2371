package domain

import "encoding/json"

// Interval is a race-mode timing sample, passed through untouched.
// Gap values are kept raw: upstream mixes numbers, strings like "+1 LAP" and null.
// A decoded sample re-encodes to the upstream bytes, fields not named here included.
type Interval struct {
	DriverNumber int             `json:"driver_number"`
	GapToLeader  json.RawMessage `json:"gap_to_leader"`
	Interval     json.RawMessage `json:"interval"`
	Date         string          `json:"date,omitempty"`
	SessionKey   int             `json:"session_key,omitempty"`
	MeetingKey   int             `json:"meeting_key,omitempty"`

	raw json.RawMessage
}

func (i *Interval) UnmarshalJSON(b []byte) error {
	type plain Interval
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*i = Interval(p)
	i.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (i Interval) MarshalJSON() ([]byte, error) {
	if i.raw != nil {
		return i.raw, nil
	}
	type plain Interval
	return json.Marshal(plain(i))
}

// CarSample is a race-mode car telemetry sample, passed through untouched
// like Interval.
type CarSample struct {
	DriverNumber int    `json:"driver_number"`
	Date         string `json:"date,omitempty"`
	RPM          int    `json:"rpm"`
	Speed        int    `json:"speed"`
	Gear         int    `json:"n_gear"`
	Throttle     int    `json:"throttle"`
	Brake        int    `json:"brake"`
	DRS          int    `json:"drs"`
	SessionKey   int    `json:"session_key,omitempty"`
	MeetingKey   int    `json:"meeting_key,omitempty"`

	raw json.RawMessage
}

func (c *CarSample) UnmarshalJSON(b []byte) error {
	type plain CarSample
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = CarSample(p)
	c.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (c CarSample) MarshalJSON() ([]byte, error) {
	if c.raw != nil {
		return c.raw, nil
	}
	type plain CarSample
	return json.Marshal(plain(c))
}

// RaceFeed groups the three race-mode collections fetched together.
type RaceFeed struct {
	Drivers   []DriverInfo
	Intervals []Interval
	CarData   []CarSample
}
