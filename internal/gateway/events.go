package gateway

import "encoding/json"

// RoomLiveTiming is the single room every timing subscriber joins.
const RoomLiveTiming = "live-timing"

// Client to server.
const (
	EventJoinLiveTiming        = "join_live_timing"
	EventLeaveLiveTiming       = "leave_live_timing"
	EventPing                  = "ping"
	EventRequestSessionHistory = "request_session_history"
)

// Server to client.
const (
	EventConnectionStatus = "connection_status"
	EventSessionInfo      = "session_info"
	EventLiveDataUpdate   = "live_data_update"
	EventSessionHistory   = "session_history"
	EventError            = "error"
	EventPong             = "pong"
)

// Generic messages sent with EventError. Upstream error text never reaches clients.
const (
	msgJoinTooSoon    = "Please wait before rejoining live timing"
	msgInitialData    = "Failed to fetch initial data"
	msgInvalidRequest = "Invalid request"
	msgUnknownEvent   = "Unknown event"
)

// Inbound is a frame received from a client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is a frame sent to clients.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type errorData struct {
	Message string `json:"message"`
}

type connectionStatus struct {
	Connected bool   `json:"connected"`
	ClientID  string `json:"clientId"`
}

type historyRequest struct {
	Limit int `json:"limit"`
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(Outbound{Event: event, Data: data})
}
