package matches

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4 * 1024

	eventBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Hub fans submission progress out to the websocket clients watching a draft.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*wsClient]struct{}
	log     hclog.Logger
}

type wsClient struct {
	hub     *Hub
	draftID string
	conn    *websocket.Conn
	send    chan scorecard.Event
}

func NewHub(logger hclog.Logger) *Hub {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Hub{clients: make(map[string]map[*wsClient]struct{}), log: logger}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.draftID]
	if set == nil {
		set = make(map[*wsClient]struct{})
		h.clients[c.draftID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.draftID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.draftID)
	}
	close(c.send)
}

// Publish hands ev to every client of its draft. It never blocks: a client
// whose buffer is full misses the event.
func (h *Hub) Publish(ev scorecard.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[ev.DraftID] {
		select {
		case c.send <- ev:
		default:
			h.log.Warn("dropping event for slow client", "draft", ev.DraftID, "step", ev.Step)
		}
	}
}

// Watchers returns how many clients follow a draft.
func (h *Hub) Watchers(draftID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[draftID])
}

// Serve upgrades the request and streams the draft's events until the peer
// goes away.
func (h *Hub) Serve(c *gin.Context, draftID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Debug("websocket upgrade failed", "draft", draftID, "error", err)
		return
	}
	client := &wsClient{hub: h, draftID: draftID, conn: conn, send: make(chan scorecard.Event, eventBuffer)}
	h.register(client)
	go client.writePump()
	go client.readPump()
}

// readPump only exists to notice the peer closing and to handle pongs.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket closed", "draft", c.draftID, "error", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
