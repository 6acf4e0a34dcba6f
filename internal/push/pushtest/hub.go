// Package pushtest provides an in-process websocket push server for tests.
package pushtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/galactic-conquest/internal/auth"
	"github.com/freeeve/galactic-conquest/internal/push"
)

const (
	writeWait   = 10 * time.Second
	maxMsgSize  = 4096
	sendBufSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type conn struct {
	ws       *websocket.Conn
	playerID int
	send     chan []byte
}

// Hub manages connections, player registrations and match rooms.
type Hub struct {
	mu          sync.RWMutex
	connections map[*conn]bool
	matches     map[int]map[*conn]bool
	chats       []push.Chat
	connects    int
	srv         *httptest.Server
}

// New starts a hub that validates tokens minted by jwtMgr. A nil manager
// accepts any connection. The hub is closed when the test ends.
func New(t testing.TB, jwtMgr *auth.JWTManager) *Hub {
	t.Helper()
	h := &Hub{
		connections: make(map[*conn]bool),
		matches:     make(map[int]map[*conn]bool),
	}
	var handler http.Handler = http.HandlerFunc(h.serveWS)
	if jwtMgr != nil {
		handler = auth.Middleware(jwtMgr)(handler)
	}
	h.srv = httptest.NewServer(handler)
	t.Cleanup(h.Close)
	return h
}

// Close drops every connection and stops accepting new ones.
func (h *Hub) Close() {
	h.DropAll()
	h.srv.Close()
}

// URL returns the websocket endpoint.
func (h *Hub) URL() string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
}

// BroadcastToMatch sends an event to every connection in the match room.
func (h *Hub) BroadcastToMatch(matchID int, event string, data any) {
	msg := frame(event, matchID, data)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.matches[matchID] {
		h.deliver(c, msg)
	}
}

// SendToPlayer sends an unscoped event to every connection registered as the player.
func (h *Hub) SendToPlayer(playerID int, event string, data any) {
	msg := frame(event, 0, data)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		if c.playerID == playerID {
			h.deliver(c, msg)
		}
	}
}

// SendRaw writes a preformatted frame to every connection, bypassing rooms.
func (h *Hub) SendRaw(f push.Frame) {
	msg, _ := json.Marshal(f)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		h.deliver(c, msg)
	}
}

// RoomSize returns the number of connections joined to a match.
func (h *Hub) RoomSize(matchID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches[matchID])
}

// Registered reports whether any live connection is registered as the player.
func (h *Hub) Registered(playerID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		if c.playerID == playerID {
			return true
		}
	}
	return false
}

// Connects returns how many connections were accepted so far.
func (h *Hub) Connects() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connects
}

// Chats returns every chat line received.
func (h *Hub) Chats() []push.Chat {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]push.Chat(nil), h.chats...)
}

// DropAll closes every connection from the server side.
func (h *Hub) DropAll() {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.connections))
	for c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.ws.Close()
	}
}

func (h *Hub) deliver(c *conn, msg []byte) {
	select {
	case c.send <- msg:
	default:
		log.Warn().Int("playerId", c.playerID).Msg("Dropping websocket message, buffer full")
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		log.Debug().Int("playerId", id.PlayerID).Msg("Push connection authenticated")
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	c := &conn{ws: ws, send: make(chan []byte, sendBufSize)}

	h.mu.Lock()
	h.connections[c] = true
	h.connects++
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	for id, conns := range h.matches {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.matches, id)
		}
	}
	close(c.send)
}

func (h *Hub) readPump(c *conn) {
	defer func() {
		h.unregister(c)
		c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMsgSize)

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var f push.Frame
		if err := json.Unmarshal(message, &f); err != nil {
			continue
		}
		h.handle(c, f)
	}
}

func (h *Hub) handle(c *conn, f push.Frame) {
	var data struct {
		PlayerID int    `json:"jugadorId"`
		MatchID  int    `json:"partidaId"`
		Text     string `json:"mensaje"`
		Author   string `json:"usuarioNombre"`
	}
	json.Unmarshal(f.Data, &data)

	h.mu.Lock()
	defer h.mu.Unlock()
	switch f.Event {
	case push.ActionRegister:
		c.playerID = data.PlayerID
	case push.ActionJoin:
		if data.MatchID == 0 {
			return
		}
		if h.matches[data.MatchID] == nil {
			h.matches[data.MatchID] = make(map[*conn]bool)
		}
		h.matches[data.MatchID][c] = true
	case push.ActionLeave:
		if conns, ok := h.matches[data.MatchID]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.matches, data.MatchID)
			}
		}
	case push.ActionSendChat:
		h.chats = append(h.chats, push.Chat{MatchID: data.MatchID, Author: data.Author, Text: data.Text})
		msg := frame(push.EventChatMessage, data.MatchID, map[string]string{"usuario": data.Author, "texto": data.Text})
		for other := range h.matches[data.MatchID] {
			h.deliver(other, msg)
		}
	}
}

func (h *Hub) writePump(c *conn) {
	defer c.ws.Close()
	for message := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, []byte{})
}

func frame(event string, matchID int, data any) []byte {
	raw, _ := json.Marshal(data)
	msg, _ := json.Marshal(push.Frame{Event: event, MatchID: matchID, Data: raw})
	return msg
}
