package resolver

import (
	"context"
	"slices"
	"time"

	"github.com/MrSnakeDoc/pitwall/internal/domain"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// SessionSource lists sessions upstream.
type SessionSource interface {
	Sessions(ctx context.Context, filter domain.SessionFilter) []domain.Session
}

// Resolution is the session a tick works on.
type Resolution struct {
	Session domain.Session
	Mode    domain.SessionMode
	Live    bool
	Pinned  bool // resolved from the configured override
}

// Info returns the header sent to clients.
func (r *Resolution) Info() domain.SessionInfo {
	s := r.Session
	return domain.SessionInfo{CurrentSession: &s, IsLive: r.Live}
}

type Resolver struct {
	source   SessionSource
	override string
	now      func() time.Time
	logger   logger.Logger
}

// New builds a resolver. A non-empty override pins every resolution to that session key.
func New(source SessionSource, override string, log logger.Logger) *Resolver {
	return &Resolver{
		source:   source,
		override: override,
		now:      time.Now,
		logger:   log.Named("resolver"),
	}
}

// WithClock replaces time.Now, for tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve picks the current session, or returns nil when there is none.
// Pinned sessions are treated as replays and never reported live.
func (r *Resolver) Resolve(ctx context.Context) *Resolution {
	if r.override != "" {
		sessions := r.source.Sessions(ctx, domain.SessionFilter{SessionKey: r.override})
		if len(sessions) == 0 {
			r.logger.Debug("override session not found", logger.String("session_key", r.override))
			return nil
		}
		return &Resolution{
			Session: sessions[0],
			Mode:    domain.ClassifySession(sessions[0]),
			Pinned:  true,
		}
	}

	now := r.now()
	sessions := r.source.Sessions(ctx, domain.SessionFilter{Year: now.Year()})
	current, ok := domain.LatestSession(sessions)
	if !ok {
		return nil
	}
	return &Resolution{
		Session: current,
		Mode:    domain.ClassifySession(current),
		Live:    domain.IsLive(current, now),
	}
}

// Recent lists this year's sessions newest first.
func (r *Resolver) Recent(ctx context.Context, limit int) []domain.Session {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	sessions := slices.Clone(r.source.Sessions(ctx, domain.SessionFilter{Year: r.now().Year()}))
	slices.SortStableFunc(sessions, func(a, b domain.Session) int {
		return startTime(b).Compare(startTime(a))
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

func startTime(s domain.Session) time.Time {
	if s.Start == nil {
		return time.Time{}
	}
	return *s.Start
}
