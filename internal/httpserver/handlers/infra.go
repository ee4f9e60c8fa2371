package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/pitwall/internal/gateway"
	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pitwall/internal/relay"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Status        string          `json:"status"`
	Relay         relay.Status    `json:"relay"`
	Gateway       gateway.Stats   `json:"gateway"`
	Redis         componentStatus `json:"redis"`
	JolpicaBudget int             `json:"jolpica_budget_remaining"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := infraResponse{
			Relay:         d.Relay.Status(),
			Gateway:       d.Gateway.Stats(),
			Redis:         checkRedis(r.Context(), d),
			JolpicaBudget: d.History.Remaining(),
		}
		resp.Status = overallStatus(resp)
		writeJSON(w, http.StatusOK, resp)
	}
}

func overallStatus(resp infraResponse) string {
	switch {
	case resp.Relay.Ticks == 0:
		return "starting"
	case resp.Relay.LastOutcome == relay.OutcomeFailed:
		return "critical"
	case !resp.Redis.OK:
		return "degraded" // dedup falls through to broadcasting every tick
	default:
		return "operational"
	}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "memory",
			Impact: "dedup-per-instance",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "dedup-disabled",
			Error:  "unreachable",
		}
	}
	return componentStatus{
		OK:     true,
		Mode:   "redis",
		Impact: "dedup-shared",
	}
}
