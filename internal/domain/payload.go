package domain

import (
	"encoding/json"
	"time"
)

// SessionInfo is the session header sent to clients.
type SessionInfo struct {
	CurrentSession *Session `json:"currentSession"`
	IsLive         bool     `json:"isLive"`
}

// LivePayload is the message broadcast to the live-timing room.
// Standings are set in timed modes, Drivers in race mode; both encode as "drivers".
type LivePayload struct {
	Mode           SessionMode
	Standings      []Standing
	Drivers        []DriverInfo
	Intervals      []Interval
	CarData        []CarSample
	CurrentSession *Session
	IsLive         bool
	Timestamp      time.Time
}

type livePayloadJSON struct {
	Drivers        any         `json:"drivers"`
	Intervals      []Interval  `json:"intervals"`
	CarData        []CarSample `json:"carData"`
	CurrentSession *Session    `json:"currentSession"`
	IsLive         bool        `json:"isLive"`
	Timestamp      time.Time   `json:"timestamp"`
	Mode           SessionMode `json:"mode"`
}

// fingerprintJSON is the subset compared between ticks.
type fingerprintJSON struct {
	Drivers   any         `json:"drivers"`
	Intervals []Interval  `json:"intervals"`
	CarData   []CarSample `json:"carData"`
}

func (p LivePayload) drivers() any {
	if p.Mode.Timed() {
		if p.Standings == nil {
			return []Standing{}
		}
		return p.Standings
	}
	if p.Drivers == nil {
		return []DriverInfo{}
	}
	return p.Drivers
}

func (p LivePayload) intervals() []Interval {
	if p.Intervals == nil {
		return []Interval{}
	}
	return p.Intervals
}

func (p LivePayload) carData() []CarSample {
	if p.CarData == nil {
		return []CarSample{}
	}
	return p.CarData
}

func (p LivePayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(livePayloadJSON{
		Drivers:        p.drivers(),
		Intervals:      p.intervals(),
		CarData:        p.carData(),
		CurrentSession: p.CurrentSession,
		IsLive:         p.IsLive,
		Timestamp:      p.Timestamp,
		Mode:           p.Mode,
	})
}

// Content returns the deterministic encoding of the drivers, intervals and
// car data. Two payloads with equal content are not re-broadcast.
func (p LivePayload) Content() ([]byte, error) {
	return json.Marshal(fingerprintJSON{
		Drivers:   p.drivers(),
		Intervals: p.intervals(),
		CarData:   p.carData(),
	})
}

// Snapshot is what a client gets on join: the session header and, when a
// session was found, a freshly built payload.
type Snapshot struct {
	Info    SessionInfo
	Payload *LivePayload
}
