package relay

import (
	"time"

	"github.com/MrSnakeDoc/pitwall/internal/metrics"
	"github.com/MrSnakeDoc/pitwall/internal/resolver"
)

type Outcome string

const (
	OutcomeBroadcast  Outcome = "broadcast"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
)

// Status is the relay's running summary, exposed on operator endpoints.
type Status struct {
	Ticks        int64         `json:"ticks"`
	Broadcasts   int64         `json:"broadcasts"`
	Suppressed   int64         `json:"suppressed"`
	Skipped      int64         `json:"skipped"`
	Failures     int64         `json:"failures"`
	LastOutcome  Outcome       `json:"last_outcome,omitempty"`
	LastTickAt   time.Time     `json:"last_tick_at"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	SessionKey   int           `json:"session_key,omitempty"`
	SessionName  string        `json:"session_name,omitempty"`
	Mode         string        `json:"mode,omitempty"`
	Live         bool          `json:"live"`
	Pinned       bool          `json:"pinned"`
}

// Status returns a copy of the current summary.
func (r *Relay) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Relay) record(outcome Outcome, res *resolver.Resolution, started time.Time, err error) {
	took := r.now().Sub(started)
	metrics.ObserveTick(string(outcome), took)

	r.mu.Lock()
	defer r.mu.Unlock()

	s := &r.status
	s.Ticks++
	s.LastOutcome = outcome
	s.LastTickAt = started
	s.LastDuration = took
	s.LastError = ""

	switch outcome {
	case OutcomeBroadcast:
		s.Broadcasts++
	case OutcomeSuppressed:
		s.Suppressed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failures++
		if err != nil {
			s.LastError = err.Error()
		}
	}

	if res != nil {
		s.SessionKey = res.Session.Key
		s.SessionName = res.Session.Name
		s.Mode = res.Mode.String()
		s.Live = res.Live
		s.Pinned = res.Pinned
	}
}
