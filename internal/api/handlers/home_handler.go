package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wisemarket1122/wisemarket/internal/api/middleware"
	"github.com/wisemarket1122/wisemarket/internal/services"
	"github.com/wisemarket1122/wisemarket/internal/view"
)

// latestItemsOnHome is how many fresh listings the landing page shows.
const latestItemsOnHome = 8

// HomeHandler serves the landing page.
type HomeHandler struct {
	listings services.IListingService
	view     view.Renderer
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(listings services.IListingService, renderer view.Renderer) *HomeHandler {
	return &HomeHandler{listings: listings, view: renderer}
}

// Index handles GET /.
func (h *HomeHandler) Index(c *gin.Context) {
	items, err := h.listings.Latest(c.Request.Context(), latestItemsOnHome)
	if err != nil {
		log.Printf("Latest listings load failed: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var nickname string
	if user, ok := middleware.UserFrom(c); ok {
		nickname = user.Nickname
	}

	h.view.HTML(c, http.StatusOK, "home/index", gin.H{
		"items":    items,
		"nickname": nickname,
	})
}
