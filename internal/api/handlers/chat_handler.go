package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wisemarket1122/wisemarket/internal/api/middleware"
	"github.com/wisemarket1122/wisemarket/internal/services"
	"github.com/wisemarket1122/wisemarket/internal/view"
	"github.com/wisemarket1122/wisemarket/internal/ws"
)

// ChatHandler serves the chat pages and the websocket endpoint.
type ChatHandler struct {
	chats services.IChatService
	hub   *ws.Hub
	view  view.Renderer
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chats services.IChatService, hub *ws.Hub, renderer view.Renderer) *ChatHandler {
	return &ChatHandler{chats: chats, hub: hub, view: renderer}
}

// Rooms handles GET /chat: every room the user participates in.
func (h *ChatHandler) Rooms(c *gin.Context) {
	user, _ := middleware.UserFrom(c)

	rooms, err := h.chats.ListRooms(c.Request.Context(), user.UserID)
	if err != nil {
		log.Printf("Room list of user %d failed: %v", user.UserID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	h.view.HTML(c, http.StatusOK, "chat/rooms", gin.H{
		"rooms":  rooms,
		"userID": user.UserID,
	})
}

// OpenRoom handles POST /chat/room: a buyer opening (or re-opening) the room
// for a listing. A seller clicking chat on their own listing bounces back to
// the listing page.
func (h *ChatHandler) OpenRoom(c *gin.Context) {
	user, _ := middleware.UserFrom(c)

	itemID, err := strconv.ParseUint(c.PostForm("itemId"), 10, 32)
	if err != nil || itemID == 0 {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	room, err := h.chats.OpenRoom(c.Request.Context(), uint(itemID), user.UserID)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, fmt.Sprintf("/chat/%d", room.ID))
	case errors.Is(err, services.ErrSelfChat):
		c.Redirect(http.StatusFound, fmt.Sprintf("/market/%d", itemID))
	case errors.Is(err, services.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	default:
		log.Printf("Room open for item %d failed: %v", itemID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// Room handles GET /chat/:roomId: the room page with its full persisted
// history. Reloading always re-renders from storage, never from the live
// registry.
func (h *ChatHandler) Room(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	roomID := pathID(c, "roomId")
	if roomID == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	isParticipant, err := h.chats.IsParticipant(c.Request.Context(), roomID, user.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Printf("Room %d membership check failed: %v", roomID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if !isParticipant {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	detail, err := h.chats.GetRoom(c.Request.Context(), roomID, user.UserID)
	if err != nil {
		log.Printf("Room %d load failed: %v", roomID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	history, err := h.chats.History(c.Request.Context(), roomID)
	if err != nil {
		log.Printf("Room %d history load failed: %v", roomID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	h.view.HTML(c, http.StatusOK, "chat/room", gin.H{
		"room":          detail.Room,
		"itemTitle":     detail.ItemTitle,
		"otherNickname": detail.OtherNickname,
		"messages":      history,
		"userID":        user.UserID,
		"nickname":      user.Nickname,
	})
}

// PostMessage handles POST /chat/:roomId/message, the no-script fallback:
// the message is persisted and the page redirects, with no live fan-out.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	roomID := pathID(c, "roomId")
	if roomID == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	isParticipant, err := h.chats.IsParticipant(c.Request.Context(), roomID, user.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Printf("Room %d membership check failed: %v", roomID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if !isParticipant {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	_, err = h.chats.SaveMessage(c.Request.Context(), roomID, user.UserID, c.PostForm("message"))
	if err != nil && !errors.Is(err, services.ErrInvalidInput) {
		log.Printf("Message save in room %d failed: %v", roomID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/chat/%d", roomID))
}

// ServeWS handles GET /ws: the websocket upgrade for the live chat channel.
func (h *ChatHandler) ServeWS(c *gin.Context) {
	if err := ws.ServeWS(h.hub, c.Writer, c.Request); err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
	}
}
