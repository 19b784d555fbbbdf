package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"speedway/internal/race"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 2000

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// sendQueueSize is the per-connection outbound buffer; slow clients drop
	sendQueueSize = 64

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// envelope is the wire framing for both directions:
// {"event": name, "data": payload}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound intent event names.
const (
	inJoin        = "join"
	inSetDistance = "race:setDistance"
	inStart       = "race:start"
	inTogglePause = "race:togglePause"
	inRestart     = "game:restart"
	inUpdate      = "player:update"
	inCollision   = "player:collision"
)

// wsClient is one connected player. The reader goroutine owns roomCode; the
// writer goroutine drains send.
type wsClient struct {
	id       string
	ip       string
	conn     *websocket.Conn
	send     chan []byte
	roomCode string
}

// WebSocketHub owns all live connections and the room membership index. It
// implements race.Dispatcher: the engine hands it outbound events and the
// hub fans them out to the right connections.
type WebSocketHub struct {
	engine *race.Engine

	mu      sync.RWMutex
	clients map[string]*wsClient            // conn id -> client
	rooms   map[string]map[string]*wsClient // room code -> conn id -> client

	register   chan *wsClient
	unregister chan *wsClient

	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a hub bound to the engine.
func NewWebSocketHub(engine *race.Engine) *WebSocketHub {
	return &WebSocketHub{
		engine:     engine,
		clients:    make(map[string]*wsClient),
		rooms:      make(map[string]map[string]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// Run processes connection lifecycle events. Start in its own goroutine.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client %s connected from %s (%d total)", client.id, client.ip, count)
			UpdateWSConnections(count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				h.wsLimiter.Release(client.ip)
				delete(h.clients, client.id)
				h.leaveRoomLocked(client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client %s disconnected (%d remaining)", client.id, count)
			UpdateWSConnections(count)
		}
	}
}

// leaveRoomLocked drops the client from the room index. Caller holds h.mu.
func (h *WebSocketHub) leaveRoomLocked(client *wsClient) {
	if client.roomCode == "" {
		return
	}
	if members, ok := h.rooms[client.roomCode]; ok {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.rooms, client.roomCode)
		}
	}
}

// Dispatch implements race.Dispatcher. Events with a connection id go to
// that connection; the rest go to every member of the room. Slow clients
// drop messages instead of stalling the tick.
func (h *WebSocketHub) Dispatch(roomCode string, outs []race.Outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, o := range outs {
		data, err := json.Marshal(o.Event)
		if err != nil {
			continue
		}

		if o.To != "" {
			if client, ok := h.clients[o.To]; ok {
				h.enqueue(client, data)
			}
			continue
		}

		for _, client := range h.rooms[roomCode] {
			h.enqueue(client, data)
		}
	}
}

func (h *WebSocketHub) enqueue(client *wsClient, data []byte) {
	select {
	case client.send <- data:
		IncrementWSMessages()
	default:
		// Backpressure: drop for this client rather than block the engine
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the connection and runs the read loop until the
// client goes away.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		ip:   ip,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	h.register <- client

	go client.writePump()
	client.readPump(h)
}

// readPump decodes intent events until the connection drops, then tears the
// player down.
func (c *wsClient) readPump(h *WebSocketHub) {
	defer func() {
		if c.roomCode != "" {
			h.engine.Disconnect(c.roomCode, c.id)
		}
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue // Malformed frames are dropped, not fatal
		}
		h.handleIntent(c, env)
	}
}

// writePump serializes all writes to the connection.
func (c *wsClient) writePump() {
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// handleIntent routes one decoded client event into the engine. Command
// rejections go back to the sender only; not-found errors are swallowed
// because they only occur when a disconnect raced the command.
func (h *WebSocketHub) handleIntent(c *wsClient, env envelope) {
	var err error

	switch env.Event {
	case inJoin:
		var req struct {
			RoomCode string `json:"roomCode"`
			Name     string `json:"name"`
		}
		if jsonErr := json.Unmarshal(env.Data, &req); jsonErr != nil {
			h.sendError(c, "invalid join payload")
			return
		}
		if c.roomCode != "" {
			h.sendError(c, "already in a room")
			return
		}
		if err = h.engine.Join(req.RoomCode, c.id, req.Name); err == nil {
			c.roomCode = req.RoomCode
			h.mu.Lock()
			if h.rooms[req.RoomCode] == nil {
				h.rooms[req.RoomCode] = make(map[string]*wsClient)
			}
			h.rooms[req.RoomCode][c.id] = c
			h.mu.Unlock()
		}

	case inSetDistance:
		var req struct {
			Meters float64 `json:"meters"`
		}
		if jsonErr := json.Unmarshal(env.Data, &req); jsonErr != nil {
			h.sendError(c, "invalid distance payload")
			return
		}
		err = h.engine.SetDistance(c.roomCode, c.id, req.Meters)

	case inStart:
		err = h.engine.StartRace(c.roomCode, c.id)

	case inTogglePause:
		err = h.engine.TogglePause(c.roomCode, c.id)

	case inRestart:
		err = h.engine.Restart(c.roomCode, c.id)

	case inUpdate:
		var upd race.PlayerUpdate
		if jsonErr := json.Unmarshal(env.Data, &upd); jsonErr != nil {
			return // High-frequency path, drop silently
		}
		err = h.engine.Update(c.roomCode, c.id, upd)

	case inCollision:
		err = h.engine.Collision(c.roomCode, c.id)

	default:
		h.sendError(c, "unknown event: "+env.Event)
		return
	}

	if err != nil {
		if errors.Is(err, race.ErrRoomNotFound) || errors.Is(err, race.ErrPlayerNotFound) {
			return // Expected under disconnect races
		}
		h.sendError(c, err.Error())
	}
}

// sendError delivers a non-fatal rejection to one connection.
func (h *WebSocketHub) sendError(c *wsClient, message string) {
	data, err := json.Marshal(race.Event{
		Name: race.EvtError,
		Data: race.ErrorPayload{Message: message},
	})
	if err != nil {
		return
	}
	h.enqueue(c, data)
}
