package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/pitwall/internal/domain"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
)

type fakeSource struct {
	mu       sync.Mutex
	snap     domain.Snapshot
	err      error
	limits   []int
	sessions []domain.Session
}

func (f *fakeSource) Snapshot(context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.err
}

func (f *fakeSource) RecentSessions(_ context.Context, limit int) []domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	return f.sessions
}

func (f *fakeSource) seenLimits() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.limits...)
}

func liveSnapshot() domain.Snapshot {
	session := domain.Session{Key: 9158, Name: "Qualifying"}
	return domain.Snapshot{
		Info: domain.SessionInfo{CurrentSession: &session, IsLive: true},
		Payload: &domain.LivePayload{
			Mode:           domain.ModeQualifying,
			Standings:      []domain.Standing{{Position: 1, DriverNumber: 1, Interval: "-", Gap: "-"}},
			CurrentSession: &session,
			IsLive:         true,
		},
	}
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func startHub(t *testing.T, opts Options, src LiveSource) (*Hub, string) {
	t.Helper()
	hub := NewHub(opts, logger.NewNop())
	if src != nil {
		hub.Attach(src)
	}
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if f := read(t, conn); f.Event != EventConnectionStatus {
		t.Fatalf("first frame = %s, want %s", f.Event, EventConnectionStatus)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	msg := map[string]any{"event": event}
	if data != nil {
		msg["data"] = data
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return f
}

// syncPing round-trips a ping so every earlier event has been handled.
func syncPing(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, EventPing, "sync")
	if f := read(t, conn); f.Event != EventPong {
		t.Fatalf("expected pong, got %s %s", f.Event, f.Data)
	}
}

func TestJoinReplaysCurrentState(t *testing.T) {
	_, url := startHub(t, Options{JoinCooldown: 5 * time.Second}, &fakeSource{snap: liveSnapshot()})
	conn := dial(t, url)

	send(t, conn, EventJoinLiveTiming, nil)

	info := read(t, conn)
	if info.Event != EventSessionInfo {
		t.Fatalf("first replay frame = %s", info.Event)
	}
	var si domain.SessionInfo
	if err := json.Unmarshal(info.Data, &si); err != nil {
		t.Fatalf("bad session_info: %v", err)
	}
	if si.CurrentSession == nil || si.CurrentSession.Key != 9158 || !si.IsLive {
		t.Errorf("session_info = %s", info.Data)
	}

	update := read(t, conn)
	if update.Event != EventLiveDataUpdate {
		t.Fatalf("second replay frame = %s", update.Event)
	}
	if !strings.Contains(string(update.Data), `"drivers":[{"position":1`) {
		t.Errorf("live_data_update = %s", update.Data)
	}
}

func TestJoinWithoutSessionSendsOnlyInfo(t *testing.T) {
	_, url := startHub(t, Options{}, &fakeSource{})
	conn := dial(t, url)

	send(t, conn, EventJoinLiveTiming, nil)
	info := read(t, conn)
	if info.Event != EventSessionInfo || !strings.Contains(string(info.Data), `"currentSession":null`) {
		t.Fatalf("got %s %s", info.Event, info.Data)
	}
	syncPing(t, conn)
}

func TestJoinSnapshotFailure(t *testing.T) {
	_, url := startHub(t, Options{}, &fakeSource{err: errors.New("upstream exploded: secret detail")})
	conn := dial(t, url)

	send(t, conn, EventJoinLiveTiming, nil)
	f := read(t, conn)
	if f.Event != EventError || !strings.Contains(string(f.Data), msgInitialData) {
		t.Fatalf("got %s %s", f.Event, f.Data)
	}
	if strings.Contains(string(f.Data), "secret") {
		t.Error("raw error text leaked to the client")
	}
}

func TestJoinCooldown(t *testing.T) {
	hub, url := startHub(t, Options{JoinCooldown: 5 * time.Second}, &fakeSource{})
	var mu sync.Mutex
	now := time.Unix(1_700_000_000, 0)
	hub.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	conn := dial(t, url)

	send(t, conn, EventJoinLiveTiming, nil)
	if f := read(t, conn); f.Event != EventSessionInfo {
		t.Fatalf("first join got %s", f.Event)
	}

	send(t, conn, EventJoinLiveTiming, nil)
	f := read(t, conn)
	if f.Event != EventError || !strings.Contains(string(f.Data), msgJoinTooSoon) {
		t.Fatalf("second join got %s %s", f.Event, f.Data)
	}

	mu.Lock()
	now = now.Add(5 * time.Second)
	mu.Unlock()

	send(t, conn, EventJoinLiveTiming, nil)
	if f := read(t, conn); f.Event != EventSessionInfo {
		t.Fatalf("join after cooldown got %s", f.Event)
	}
}

func TestPingEchoesPayload(t *testing.T) {
	_, url := startHub(t, Options{}, nil)
	conn := dial(t, url)

	send(t, conn, EventPing, map[string]int64{"timestamp": 1709391600123})
	f := read(t, conn)
	if f.Event != EventPong || string(f.Data) != `{"timestamp":1709391600123}` {
		t.Fatalf("got %s %s", f.Event, f.Data)
	}

	send(t, conn, EventPing, nil)
	if f := read(t, conn); f.Event != EventPong || string(f.Data) != "null" {
		t.Fatalf("empty ping got %s %s", f.Event, f.Data)
	}
}

func TestBroadcastReachesSubscribersOnly(t *testing.T) {
	hub, url := startHub(t, Options{}, &fakeSource{})
	subscriber := dial(t, url)
	bystander := dial(t, url)

	send(t, subscriber, EventJoinLiveTiming, nil)
	read(t, subscriber) // session_info

	hub.PublishLiveData(domain.LivePayload{Mode: domain.ModeRace, Drivers: []domain.DriverInfo{{DriverNumber: 44}}})

	f := read(t, subscriber)
	if f.Event != EventLiveDataUpdate || !strings.Contains(string(f.Data), `"driver_number":44`) {
		t.Fatalf("subscriber got %s %s", f.Event, f.Data)
	}
	// the bystander's next frame is the pong, nothing was queued before it
	syncPing(t, bystander)

	hub.PublishError("Failed to fetch live data")
	if f := read(t, subscriber); f.Event != EventError {
		t.Fatalf("subscriber got %s", f.Event)
	}
}

func TestLeaveStopsBroadcasts(t *testing.T) {
	hub, url := startHub(t, Options{}, &fakeSource{})
	conn := dial(t, url)

	send(t, conn, EventJoinLiveTiming, nil)
	read(t, conn)
	send(t, conn, EventLeaveLiveTiming, nil)
	syncPing(t, conn)

	if got := hub.Stats().Subscribers; got != 0 {
		t.Fatalf("Subscribers = %d after leave", got)
	}
	hub.PublishLiveData(domain.LivePayload{})
	syncPing(t, conn)
}

func TestDisconnectCleansUp(t *testing.T) {
	hub, url := startHub(t, Options{}, &fakeSource{})
	conn := dial(t, url)
	send(t, conn, EventJoinLiveTiming, nil)
	read(t, conn)

	if st := hub.Stats(); st.Clients != 1 || st.Subscribers != 1 {
		t.Fatalf("Stats() = %+v", st)
	}
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Stats().Clients != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if st := hub.Stats(); st.Clients != 0 || st.Subscribers != 0 {
		t.Fatalf("Stats() after disconnect = %+v", st)
	}
	// publishing to an empty room is a no-op
	hub.PublishLiveData(domain.LivePayload{})
}

func TestSessionHistory(t *testing.T) {
	src := &fakeSource{sessions: []domain.Session{{Key: 2}, {Key: 1}}}
	_, url := startHub(t, Options{}, src)
	conn := dial(t, url)

	send(t, conn, EventRequestSessionHistory, map[string]int{"limit": 2})
	f := read(t, conn)
	var sessions []domain.Session
	if err := json.Unmarshal(f.Data, &sessions); err != nil || f.Event != EventSessionHistory {
		t.Fatalf("got %s %s (%v)", f.Event, f.Data, err)
	}
	if limits := src.seenLimits(); len(sessions) != 2 || len(limits) != 1 || limits[0] != 2 {
		t.Errorf("sessions = %+v, limits = %v", sessions, src.seenLimits())
	}

	send(t, conn, EventRequestSessionHistory, "not an object")
	if f := read(t, conn); f.Event != EventError {
		t.Fatalf("bad request got %s", f.Event)
	}
}

func TestInvalidFrames(t *testing.T) {
	_, url := startHub(t, Options{}, nil)
	conn := dial(t, url)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if f := read(t, conn); f.Event != EventError || !strings.Contains(string(f.Data), msgInvalidRequest) {
		t.Fatalf("got %s %s", f.Event, f.Data)
	}

	send(t, conn, "subscribe_everything", nil)
	if f := read(t, conn); f.Event != EventError || !strings.Contains(string(f.Data), msgUnknownEvent) {
		t.Fatalf("got %s %s", f.Event, f.Data)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no list", origin: "http://evil.example", want: true},
		{name: "no origin header", allowed: []string{"http://localhost:5173"}, want: true},
		{name: "allowed", allowed: []string{"http://localhost:5173"}, origin: "http://localhost:5173", want: true},
		{name: "rejected", allowed: []string{"http://localhost:5173"}, origin: "http://evil.example", want: false},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://any.example", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(Options{AllowedOrigins: tt.allowed}, logger.NewNop())
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := h.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}
