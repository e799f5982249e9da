package api

import (
	"net/http"

	"chargex_project/internal/fanout"
	"chargex_project/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler upgrades dashboard connections and hands them to the fan-out hub
type WSHandler struct {
	hub *fanout.Hub
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *fanout.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Serve handles GET /ws
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	client := fanout.NewClient(h.hub, conn)

	// Optional room pre-subscription via query params; clients can also
	// manage rooms with subscribe/unsubscribe control frames.
	if deviceID := c.Query("deviceId"); deviceID != "" {
		client.Subscribe(fanout.DeviceRoom(deviceID))
	}
	if batteryID := c.Query("batteryId"); batteryID != "" {
		client.Subscribe(fanout.BatteryRoom(batteryID))
	}

	go client.WritePump()
	go client.ReadPump()
}
