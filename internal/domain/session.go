package domain

import (
	"strings"
	"time"
)

// Session is a single timed on-track session (practice, qualifying, sprint, race)
// as reported by the telemetry API. Field tags follow the upstream wire names.
type Session struct {
	Key              int        `json:"session_key"`
	Name             string     `json:"session_name"`
	Type             string     `json:"session_type,omitempty"`
	Start            *time.Time `json:"date_start,omitempty"`
	End              *time.Time `json:"date_end,omitempty"`
	MeetingKey       int        `json:"meeting_key,omitempty"`
	Location         string     `json:"location,omitempty"`
	CountryName      string     `json:"country_name,omitempty"`
	CircuitShortName string     `json:"circuit_short_name,omitempty"`
	GMTOffset        string     `json:"gmt_offset,omitempty"`
	Year             int        `json:"year,omitempty"`
}

// SessionFilter selects sessions upstream. SessionKey wins over Year when set.
// SessionKey is kept as a string so the upstream alias "latest" can be passed through.
type SessionFilter struct {
	Year       int
	SessionKey string
}

// SessionMode drives which derivation path the relay takes.
type SessionMode int

const (
	ModeRace SessionMode = iota
	ModePractice
	ModeQualifying
)

func (m SessionMode) String() string {
	switch m {
	case ModePractice:
		return "practice"
	case ModeQualifying:
		return "qualifying"
	default:
		return "race"
	}
}

// Timed reports whether standings are ranked by best lap time.
func (m SessionMode) Timed() bool {
	return m == ModePractice || m == ModeQualifying
}

func (m SessionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ClassifySession maps a session to its mode from its display name.
// Anything that is neither practice nor qualifying (race, sprint, sprint shootout)
// is handled as a race.
func ClassifySession(s Session) SessionMode {
	name := strings.ToLower(s.Name)
	switch {
	case strings.Contains(name, "practice"):
		return ModePractice
	case strings.Contains(name, "qualifying"):
		return ModeQualifying
	default:
		return ModeRace
	}
}

// IsLive reports whether now falls inside [Start, End]. A session missing either
// bound is never live.
func IsLive(s Session, now time.Time) bool {
	if s.Start == nil || s.End == nil {
		return false
	}
	return !now.Before(*s.Start) && !now.After(*s.End)
}

// LatestSession returns the session with the greatest start time.
// Ties go to the later element; sessions without a start time sort as oldest.
func LatestSession(sessions []Session) (Session, bool) {
	if len(sessions) == 0 {
		return Session{}, false
	}
	best := 0
	for i := 1; i < len(sessions); i++ {
		if !startOf(sessions[i]).Before(startOf(sessions[best])) {
			best = i
		}
	}
	return sessions[best], true
}

func startOf(s Session) time.Time {
	if s.Start == nil {
		return time.Time{}
	}
	return *s.Start
}
