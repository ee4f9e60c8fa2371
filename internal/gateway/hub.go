package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/pitwall/internal/domain"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/metrics"
	"github.com/MrSnakeDoc/pitwall/internal/utils"
)

// LiveSource builds the state replayed to joining clients.
type LiveSource interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	RecentSessions(ctx context.Context, limit int) []domain.Session
}

type Options struct {
	JoinCooldown   time.Duration // min delay between two joins from one client, 0 disables
	AllowedOrigins []string      // browser origins allowed to connect, empty = any
	TrustProxy     bool          // resolve client IPs from proxy headers
	SendBuffer     int           // per-client outbound queue length
	ReplayTimeout  time.Duration // bound on the fresh fetch done on join
}

// Stats counts connected clients and live-timing subscribers.
type Stats struct {
	Clients     int `json:"clients"`
	Subscribers int `json:"subscribers"`
}

// Hub tracks websocket clients and their room memberships. Room-wide sends
// happen under one lock, so every member sees room events in the same order.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	source  LiveSource

	opts     Options
	upgrader websocket.Upgrader
	logger   logger.Logger
	now      func() time.Time
}

func NewHub(opts Options, log logger.Logger) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.ReplayTimeout <= 0 {
		opts.ReplayTimeout = 15 * time.Second
	}
	h := &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		opts:    opts,
		logger:  log.Named("gateway"),
		now:     time.Now,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Attach sets the source used for join replays and session history.
func (h *Hub) Attach(src LiveSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = src
}

func (h *Hub) liveSource() LiveSource {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, "*") || slices.Contains(h.opts.AllowedOrigins, origin)
}

// ServeHTTP upgrades the request and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.logger.Debug("websocket upgrade failed", logger.Error(err))
		return
	}

	id := uuid.NewString()
	c := &Client{
		id:       id,
		remoteIP: utils.ClientIP(r, h.opts.TrustProxy),
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, h.opts.SendBuffer),
		logger:   h.logger.With(logger.String("client_id", id)),
	}
	h.register(c)
	c.emit(EventConnectionStatus, connectionStatus{Connected: true, ClientID: id})

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.SetClients(n)
	c.logger.Info("client connected", logger.String("remote_ip", c.remoteIP))
}

// unregister drops the client from every room and closes its queue.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for name, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	close(c.send)
	clients, subs := len(h.clients), len(h.rooms[RoomLiveTiming])
	h.mu.Unlock()

	metrics.SetClients(clients)
	metrics.SetSubscribers(subs)
	c.logger.Info("client disconnected")
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	subs := len(h.rooms[RoomLiveTiming])
	h.mu.Unlock()

	metrics.SetSubscribers(subs)
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	subs := len(h.rooms[RoomLiveTiming])
	h.mu.Unlock()

	metrics.SetSubscribers(subs)
}

// broadcast encodes once and queues the frame for every member of room.
func (h *Hub) broadcast(room, event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		h.logger.Error("failed to encode broadcast", logger.String("event", event), logger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		c.enqueue(frame)
	}
}

// PublishLiveData sends a relay payload to the live-timing room.
func (h *Hub) PublishLiveData(p domain.LivePayload) {
	h.broadcast(RoomLiveTiming, EventLiveDataUpdate, p)
}

// PublishError sends a generic error to the live-timing room.
func (h *Hub) PublishError(message string) {
	h.broadcast(RoomLiveTiming, EventError, errorData{Message: message})
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Clients: len(h.clients), Subscribers: len(h.rooms[RoomLiveTiming])}
}

// Close disconnects every client. Used on shutdown, since hijacked
// connections are not closed by http.Server.Shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// dispatch handles one client event. It runs on the client's read goroutine.
func (h *Hub) dispatch(c *Client, msg Inbound) {
	switch msg.Event {
	case EventJoinLiveTiming:
		now := h.now()
		if h.opts.JoinCooldown > 0 && !c.lastJoin.IsZero() && now.Sub(c.lastJoin) < h.opts.JoinCooldown {
			c.logger.Info("join rejected, cooldown active")
			c.emitError(msgJoinTooSoon)
			return
		}
		c.lastJoin = now
		h.join(c, RoomLiveTiming)
		c.logger.Info("joined room", logger.String("room", RoomLiveTiming))
		h.replay(c)

	case EventLeaveLiveTiming:
		h.leave(c, RoomLiveTiming)
		c.logger.Info("left room", logger.String("room", RoomLiveTiming))

	case EventPing:
		data := msg.Data
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		c.emit(EventPong, data)

	case EventRequestSessionHistory:
		var req historyRequest
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				c.emitError(msgInvalidRequest)
				return
			}
		}
		src := h.liveSource()
		if src == nil {
			c.emit(EventSessionHistory, []domain.Session{})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.ReplayTimeout)
		defer cancel()
		c.emit(EventSessionHistory, src.RecentSessions(ctx, req.Limit))

	default:
		c.emitError(msgUnknownEvent)
	}
}

// replay sends the current session header and a freshly built payload to one client.
func (h *Hub) replay(c *Client) {
	src := h.liveSource()
	if src == nil {
		c.emit(EventSessionInfo, domain.SessionInfo{})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.ReplayTimeout)
	defer cancel()

	snap, err := src.Snapshot(ctx)
	if err != nil {
		c.logger.Error("failed to build initial data", logger.Error(err))
		c.emitError(msgInitialData)
		return
	}
	c.emit(EventSessionInfo, snap.Info)
	if snap.Payload != nil {
		c.emit(EventLiveDataUpdate, *snap.Payload)
	}
}
