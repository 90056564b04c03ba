// Package feed broadcasts session lifecycle events to websocket spectators.
//
// Publishing never blocks: each subscriber has a bounded outbox and events
// that do not fit are dropped for that subscriber only.
package feed

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fennewald/battle-snakes/api"
	"github.com/fennewald/battle-snakes/game"
)

// EventType names a lifecycle event.
type EventType string

const (
	EventStart EventType = "game_start"
	EventFrame EventType = "frame"
	EventEnd   EventType = "game_end"
)

// Event is one message on the feed.
type Event struct {
	Type   EventType `json:"type"`
	GameID string    `json:"game_id"`
	Turn   int       `json:"turn"`
	Time   time.Time `json:"time"`
	// Board is in wire shape so spectators can reuse an engine client.
	Board *api.Board `json:"board,omitempty"`
	YouID string     `json:"you_id,omitempty"`
	Move  string     `json:"move,omitempty"`
	// Degraded marks a fallback move.
	Degraded bool   `json:"degraded,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

// NewEvent builds an event carrying board.
func NewEvent(t EventType, gameID string, turn int, board *game.Board, youID string) Event {
	ev := Event{Type: t, GameID: gameID, Turn: turn, Time: time.Now().UTC(), YouID: youID}
	if board != nil {
		b := api.EncodeBoard(board)
		ev.Board = &b
	}
	return ev
}

const (
	outboxSize = 64
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type subscriber struct {
	id     uuid.UUID
	gameID string // empty means every game
	out    chan []byte
}

// Hub fans events out to subscribers. The zero value is not usable; use
// NewHub.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[uuid.UUID]*subscriber
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With("component", "feed"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[uuid.UUID]*subscriber),
	}
}

// Subscribe registers a subscriber for gameID ("" for all games).
func (h *Hub) Subscribe(gameID string) (uuid.UUID, <-chan []byte) {
	s := &subscriber{id: uuid.New(), gameID: gameID, out: make(chan []byte, outboxSize)}
	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()
	return s.id, s.out
}

// Unsubscribe removes the subscriber and closes its channel.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	s, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		close(s.out)
	}
}

// Len is the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers ev to every interested subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.subs) == 0 {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "type", ev.Type, "game_id", ev.GameID, "err", err)
		return
	}
	for _, s := range h.subs {
		if s.gameID != "" && s.gameID != ev.GameID {
			continue
		}
		select {
		case s.out <- payload:
		default:
			h.logger.Debug("subscriber too slow, dropping event", "subscriber", s.id, "game_id", ev.GameID)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client goes
// away. ?game=<id> limits the stream to one game.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	id, out := h.Subscribe(r.URL.Query().Get("game"))
	defer h.Unsubscribe(id)
	log := h.logger.With("subscriber", id)
	log.Info("spectator connected", "remote", r.RemoteAddr)

	// Reader: only needed to see pongs and the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			log.Info("spectator disconnected")
			return
		case payload, ok := <-out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug("write failed", "err", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
