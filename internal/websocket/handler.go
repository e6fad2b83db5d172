package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn) uuid.UUID {
	client := &Client{Hub: hub, Conn: c, ID: uuid.New(), Send: make(chan []byte, sendBuffer)}
	if !hub.add(client) {
		c.Close()
		return client.ID
	}

	go client.writePump()
	client.readPump()
	return client.ID
}
