package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wisemarket1122/wisemarket/internal/api/middleware"
	"github.com/wisemarket1122/wisemarket/internal/models"
	"github.com/wisemarket1122/wisemarket/internal/services"
	"github.com/wisemarket1122/wisemarket/internal/storage"
	"github.com/wisemarket1122/wisemarket/internal/view"
)

// maxListingImages caps the number of photos on one listing.
const maxListingImages = 5

// MarketHandler serves the marketplace pages.
type MarketHandler struct {
	listings services.IListingService
	images   storage.ImageStore
	view     view.Renderer
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(listings services.IListingService, images storage.ImageStore, renderer view.Renderer) *MarketHandler {
	return &MarketHandler{listings: listings, images: images, view: renderer}
}

// List handles GET /market: one page of listings, newest first, optionally
// filtered by search query and category.
func (h *MarketHandler) List(c *gin.Context) {
	query := c.Query("query")
	category := c.Query("category")

	page, err := h.listings.Search(c.Request.Context(), query, category, pageParam(c))
	if err != nil {
		log.Printf("Market search failed: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	h.view.HTML(c, http.StatusOK, "market/list", gin.H{
		"items":      page.Items,
		"page":       page.Page,
		"totalItems": page.TotalItems,
		"totalPages": page.TotalPages,
		"query":      query,
		"category":   category,
	})
}

// ShowNew handles GET /market/new.
func (h *MarketHandler) ShowNew(c *gin.Context) {
	h.view.HTML(c, http.StatusOK, "market/new", gin.H{})
}

// Create handles POST /market: a multipart form with the listing fields and
// up to five photos. The first uploaded photo becomes the thumbnail.
func (h *MarketHandler) Create(c *gin.Context) {
	user, _ := middleware.UserFrom(c)

	title := c.PostForm("title")
	description := c.PostForm("description")
	category := c.PostForm("category")
	price, err := strconv.ParseInt(c.PostForm("price"), 10, 64)
	if err != nil || price < 0 {
		h.view.HTML(c, http.StatusBadRequest, "market/new", gin.H{
			"error": "Please enter a valid price.",
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.view.HTML(c, http.StatusBadRequest, "market/new", gin.H{
			"error": "Could not read the uploaded form.",
		})
		return
	}
	files := form.File["images"]
	if len(files) > maxListingImages {
		files = files[:maxListingImages]
	}

	imagePaths := make([]string, 0, len(files))
	for _, file := range files {
		path, err := h.images.Save(c, file, "market")
		if err != nil {
			log.Printf("Listing image upload failed: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		imagePaths = append(imagePaths, path)
	}

	item, err := h.listings.Create(c.Request.Context(), user.UserID, title, description, price, category, imagePaths)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			h.view.HTML(c, http.StatusBadRequest, "market/new", gin.H{
				"error":       ve.Msg,
				"title":       title,
				"description": description,
				"category":    category,
			})
			return
		}
		log.Printf("Listing create failed: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Redirect(http.StatusFound, "/market/"+strconv.FormatUint(uint64(item.ID), 10))
}

// Detail handles GET /market/:id.
func (h *MarketHandler) Detail(c *gin.Context) {
	itemID := pathID(c, "id")
	if itemID == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	detail, err := h.listings.FindByID(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Printf("Listing %d load failed: %v", itemID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	isOwner := false
	if user, ok := middleware.UserFrom(c); ok {
		isOwner = user.UserID == detail.Item.SellerID
	}

	h.view.HTML(c, http.StatusOK, "market/detail", gin.H{
		"item":           detail.Item,
		"images":         detail.Images,
		"sellerNickname": detail.SellerNickname,
		"isOwner":        isOwner,
	})
}

// UpdateStatus handles POST /market/:id/status: the seller moves the listing
// between on_sale, reserved and sold.
func (h *MarketHandler) UpdateStatus(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	itemID := pathID(c, "id")
	if itemID == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	status := models.ItemStatus(c.PostForm("status"))
	err := h.listings.UpdateStatus(c.Request.Context(), itemID, user.UserID, status)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/market/"+c.Param("id"))
	case errors.Is(err, services.ErrInvalidInput):
		c.AbortWithStatus(http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		c.AbortWithStatus(http.StatusForbidden)
	default:
		log.Printf("Status update of listing %d failed: %v", itemID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// Delete handles POST /market/:id/delete.
func (h *MarketHandler) Delete(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	itemID := pathID(c, "id")
	if itemID == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	err := h.listings.Delete(c.Request.Context(), itemID, user.UserID)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/market")
	case errors.Is(err, services.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		c.AbortWithStatus(http.StatusForbidden)
	default:
		log.Printf("Delete of listing %d failed: %v", itemID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
