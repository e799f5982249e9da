package fanout

import (
	"encoding/json"
	"sync"
	"time"

	"chargex_project/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// subscribeRequest is the control frame clients send to join/leave rooms.
type subscribeRequest struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Room   string `json:"room"`
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.RWMutex
	rooms map[string]bool
}

// NewClient wraps an upgraded connection and registers it with the hub.
// The caller must start ReadPump and WritePump.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 64),
		rooms: make(map[string]bool),
	}
	hub.register <- client
	return client
}

// Subscribe joins the client to a room.
func (c *Client) Subscribe(room string) {
	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()
}

// Unsubscribe removes the client from a room.
func (c *Client) Unsubscribe(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

func (c *Client) inRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[room]
}

// ReadPump consumes subscribe/unsubscribe control frames until the
// connection closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debugf("WebSocket read error: %v", err)
			}
			break
		}

		var req subscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			logger.Debugf("Ignoring malformed control frame: %v", err)
			continue
		}

		switch req.Action {
		case "subscribe":
			c.Subscribe(req.Room)
		case "unsubscribe":
			c.Unsubscribe(req.Room)
		}
	}
}

// WritePump forwards hub messages to the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debugf("WebSocket write error: %v", err)
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
