package fanout

import (
	"encoding/json"
	"sync"
	"time"

	"chargex_project/pkg/logger"
)

// Hub maintains the set of active clients and routes published events to
// the clients subscribed to each room. Events published to GlobalRoom reach
// every connected client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	outbound   chan outboundMessage

	done chan struct{}
}

type outboundMessage struct {
	room string
	data []byte
}

// NewHub creates a hub; call Run in a goroutine to start delivery.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan outboundMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and outbound messages until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debugf("Fan-out client registered (%d connected)", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.outbound:
			h.deliver(msg)

		case <-h.done:
			return
		}
	}
}

// Stop terminates the Run loop.
func (h *Hub) Stop() {
	close(h.done)
}

// Publish queues an event for delivery to the room's subscribers. The call
// never blocks the publisher; if the hub's queue is full the event is
// dropped and logged.
func (h *Hub) Publish(room, event string, payload interface{}) {
	envelope := Envelope{
		Event:     event,
		Room:      room,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		logger.Errorf("Failed to marshal %s event: %v", event, err)
		return
	}

	select {
	case h.outbound <- outboundMessage{room: room, data: data}:
	default:
		logger.Warnf("Fan-out queue full, dropping %s event for room %q", event, room)
	}
}

func (h *Hub) deliver(msg outboundMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if msg.room != GlobalRoom && !client.inRoom(msg.room) {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			// Slow consumer; drop it rather than stall delivery.
			logger.Warn("Fan-out client send buffer full, removing client")
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
