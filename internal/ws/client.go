package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Pages and websocket share an origin; the default host check is right.
}

// Client is one live websocket connection. userID and nickname are the
// connection-scoped state attached by a successful joinRoom; until then the
// connection cannot send. joined and gone are owned by the hub goroutine.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID   uint
	nickname string

	joined map[uint]struct{}
	gone   bool
}

// ServeWS upgrades the request and starts the connection's read and write
// pumps. The caller has already checked that a session user is logged in.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		joined: make(map[uint]struct{}),
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump reads events off the socket and forwards them to the hub. It
// exits on any read error, which is also how a dropped connection is
// detected; the deferred unregister then cleans the registry.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Websocket read error: %v", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			// Garbage frames are ignored, not fatal.
			continue
		}

		switch ev.Type {
		case EventJoinRoom:
			c.hub.frames <- frame{
				client:   c,
				kind:     frameJoin,
				roomID:   ev.RoomID,
				userID:   ev.UserID,
				nickname: ev.Nickname,
			}
		case EventChatMessage:
			c.hub.frames <- frame{
				client:  c,
				kind:    frameSend,
				roomID:  ev.RoomID,
				content: ev.Message,
			}
		}
	}
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with pings. It exits when the hub closes the queue.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
