package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers a connection for userKey and pumps it until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, userKey string, onMessage MessageHandler) {
	client := &Client{
		Hub:       hub,
		Conn:      c,
		ID:        uuid.NewString(),
		UserKey:   userKey,
		Send:      make(chan []byte, 256),
		onMessage: onMessage,
	}
	if !hub.add(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
