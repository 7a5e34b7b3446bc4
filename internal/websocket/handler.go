package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs subscribes the connection to topics, lets onSubscribed push any
// snapshot, then pumps until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, topics []string, onSubscribed func(sub *Subscriber)) {
	client := &Client{Hub: hub, Conn: c, Sub: hub.Subscribe(topics...)}

	if onSubscribed != nil {
		onSubscribed(client.Sub)
	}

	go client.writePump()
	client.readPump()
}
