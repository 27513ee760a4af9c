package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/wisemarket1122/wisemarket/internal/models"
)

// MessageStore is the slice of the chat service the hub needs: persist one
// message and hand back the stored row. Persistence always happens before
// fan-out so a page reload can never miss a message a live client rendered.
type MessageStore interface {
	SaveMessage(ctx context.Context, roomID, senderID uint, content string) (*models.ChatMessage, error)
}

// Event is the wire format of the realtime channel, both directions.
// Client to server: {type: "joinRoom", roomId, userId, nickname} and
// {type: "chatMessage", roomId, message}. Server to room members:
// {type: "chatMessage", roomId, message, userId, nickname, created_at}.
type Event struct {
	Type      string `json:"type"`
	RoomID    uint   `json:"roomId,omitempty"`
	UserID    uint   `json:"userId,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

const (
	EventJoinRoom    = "joinRoom"
	EventChatMessage = "chatMessage"
)

type frameKind int

const (
	frameJoin frameKind = iota
	frameSend
)

// frame is one inbound unit of work. Joins and sends from the same
// connection travel through the same channel, so a connection's join is
// always processed before its later sends.
type frame struct {
	client   *Client
	kind     frameKind
	roomID   uint
	userID   uint
	nickname string
	content  string
}

// Hub is the process-wide room registry: room id to the set of currently
// joined connections. Membership is purely in-memory; it is rebuilt as
// connections join and evaporates on disconnect. The persisted history
// stays the single source of truth.
//
// All registry state is owned by the single Run goroutine, which also
// serializes persist-then-broadcast per process: within a room, broadcast
// order always matches persisted order.
type Hub struct {
	rooms map[uint]map[*Client]struct{}

	frames     chan frame
	unregister chan *Client

	store MessageStore
}

// NewHub creates a hub persisting through the given store. Call Run in its
// own goroutine before serving connections.
func NewHub(store MessageStore) *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Client]struct{}),
		frames:     make(chan frame, 64),
		unregister: make(chan *Client),
		store:      store,
	}
}

// Run processes joins, sends and disconnects until the hub is abandoned.
func (h *Hub) Run() {
	for {
		select {
		case f := <-h.frames:
			switch f.kind {
			case frameJoin:
				h.handleJoin(f)
			case frameSend:
				h.handleSend(f)
			}
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// handleJoin registers the connection under the room and records the acting
// user's identity and nickname on it. Joining the same room twice is a
// no-op beyond re-registration. The room id is trusted as handed out by the
// session-authenticated room page; membership is not re-checked here.
func (h *Hub) handleJoin(f frame) {
	if f.roomID == 0 {
		return
	}
	c := f.client
	c.userID = f.userID
	c.nickname = f.nickname

	members, ok := h.rooms[f.roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[f.roomID] = members
	}
	members[c] = struct{}{}
	c.joined[f.roomID] = struct{}{}
}

// handleSend persists the message and, only on success, fans it out to
// every connection currently joined to the room, the sender included.
// Malformed sends and sends from connections that never joined are dropped
// silently; a storage failure aborts the fan-out and is only logged.
func (h *Hub) handleSend(f frame) {
	c := f.client
	if f.roomID == 0 || f.content == "" || c.userID == 0 {
		return
	}

	msg, err := h.store.SaveMessage(context.Background(), f.roomID, c.userID, f.content)
	if err != nil {
		log.Printf("Dropping chat message in room %d: %v", f.roomID, err)
		return
	}

	out := Event{
		Type:      EventChatMessage,
		RoomID:    f.roomID,
		UserID:    c.userID,
		Nickname:  c.nickname,
		Message:   msg.Content,
		CreatedAt: msg.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	payload, err := json.Marshal(out)
	if err != nil {
		log.Printf("Failed to marshal chat message for room %d: %v", f.roomID, err)
		return
	}

	for member := range h.rooms[f.roomID] {
		select {
		case member.send <- payload:
		default:
			// The member's writer is hopelessly behind; cut it loose.
			h.removeClient(member)
		}
	}
}

// removeClient drops a connection from every room it joined and closes its
// outbound queue. Safe to call twice for the same client.
func (h *Hub) removeClient(c *Client) {
	if c.gone {
		return
	}
	c.gone = true
	for roomID := range c.joined {
		members := h.rooms[roomID]
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	close(c.send)
}
