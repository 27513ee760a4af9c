package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wisemarket1122/wisemarket/internal/api/middleware"
	"github.com/wisemarket1122/wisemarket/internal/services"
	"github.com/wisemarket1122/wisemarket/internal/storage"
	"github.com/wisemarket1122/wisemarket/internal/view"
)

// CommunityHandler serves the community board pages.
type CommunityHandler struct {
	boards services.IBoardService
	images storage.ImageStore
	view   view.Renderer
}

// NewCommunityHandler creates a new CommunityHandler.
func NewCommunityHandler(boards services.IBoardService, images storage.ImageStore, renderer view.Renderer) *CommunityHandler {
	return &CommunityHandler{boards: boards, images: images, view: renderer}
}

// Boards handles GET /community.
func (h *CommunityHandler) Boards(c *gin.Context) {
	boards, err := h.boards.ListBoards(c.Request.Context())
	if err != nil {
		log.Printf("Board list failed: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	h.view.HTML(c, http.StatusOK, "community/boards", gin.H{"boards": boards})
}

// Posts handles GET /community/:boardId: one page of a board's posts.
func (h *CommunityHandler) Posts(c *gin.Context) {
	boardID := pathID(c, "boardId")
	if boardID == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	query := c.Query("query")

	page, err := h.boards.ListPosts(c.Request.Context(), boardID, query, pageParam(c))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Printf("Post list of board %d failed: %v", boardID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	h.view.HTML(c, http.StatusOK, "community/posts", gin.H{
		"board":      page.Board,
		"posts":      page.Posts,
		"page":       page.Page,
		"totalPosts": page.TotalPosts,
		"totalPages": page.TotalPages,
		"query":      query,
	})
}

// ShowNewPost handles GET /community/:boardId/new.
func (h *CommunityHandler) ShowNewPost(c *gin.Context) {
	boardID := pathID(c, "boardId")
	board, err := h.boards.FindBoard(c.Request.Context(), boardID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Printf("Board %d load failed: %v", boardID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	h.view.HTML(c, http.StatusOK, "community/new_post", gin.H{"board": board})
}

// CreatePost handles POST /community/:boardId: a post with an optional photo.
func (h *CommunityHandler) CreatePost(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	boardID := pathID(c, "boardId")
	if boardID == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	title := c.PostForm("title")
	content := c.PostForm("content")

	imagePath, err := h.optionalImage(c, "community")
	if err != nil {
		log.Printf("Post image upload failed: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	post, err := h.boards.CreatePost(c.Request.Context(), boardID, user.UserID, title, content, imagePath)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			h.view.HTML(c, http.StatusBadRequest, "community/new_post", gin.H{
				"error":   ve.Msg,
				"title":   title,
				"content": content,
			})
			return
		}
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Printf("Post create on board %d failed: %v", boardID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/community/%d/%d", boardID, post.ID))
}

// PostDetail handles GET /community/:boardId/:postId.
func (h *CommunityHandler) PostDetail(c *gin.Context) {
	boardID := pathID(c, "boardId")
	postID := pathID(c, "postId")
	if boardID == 0 || postID == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	detail, err := h.boards.FindPost(c.Request.Context(), boardID, postID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Printf("Post %d load failed: %v", postID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var viewerID uint
	if user, ok := middleware.UserFrom(c); ok {
		viewerID = user.UserID
	}

	h.view.HTML(c, http.StatusOK, "community/post_detail", gin.H{
		"board":          detail.Board,
		"post":           detail.Post,
		"authorNickname": detail.AuthorNickname,
		"comments":       detail.Comments,
		"isAuthor":       viewerID != 0 && viewerID == detail.Post.AuthorID,
		"viewerID":       viewerID,
	})
}

// ShowEditPost handles GET /community/:boardId/:postId/edit.
func (h *CommunityHandler) ShowEditPost(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	boardID := pathID(c, "boardId")
	postID := pathID(c, "postId")

	detail, err := h.boards.FindPost(c.Request.Context(), boardID, postID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Printf("Post %d load failed: %v", postID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if detail.Post.AuthorID != user.UserID {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	h.view.HTML(c, http.StatusOK, "community/edit_post", gin.H{
		"board": detail.Board,
		"post":  detail.Post,
	})
}

// UpdatePost handles POST /community/:boardId/:postId/edit.
func (h *CommunityHandler) UpdatePost(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	boardID := pathID(c, "boardId")
	postID := pathID(c, "postId")

	title := c.PostForm("title")
	content := c.PostForm("content")

	imagePath, err := h.optionalImage(c, "community")
	if err != nil {
		log.Printf("Post image upload failed: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	err = h.boards.UpdatePost(c.Request.Context(), boardID, postID, user.UserID, title, content, imagePath)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, fmt.Sprintf("/community/%d/%d", boardID, postID))
	case errors.Is(err, services.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		c.AbortWithStatus(http.StatusForbidden)
	default:
		if ve, ok := services.AsValidation(err); ok {
			h.view.HTML(c, http.StatusBadRequest, "community/edit_post", gin.H{
				"error":   ve.Msg,
				"title":   title,
				"content": content,
			})
			return
		}
		log.Printf("Post %d update failed: %v", postID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// DeletePost handles POST /community/:boardId/:postId/delete.
func (h *CommunityHandler) DeletePost(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	boardID := pathID(c, "boardId")
	postID := pathID(c, "postId")

	err := h.boards.DeletePost(c.Request.Context(), boardID, postID, user.UserID)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, fmt.Sprintf("/community/%d", boardID))
	case errors.Is(err, services.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		c.AbortWithStatus(http.StatusForbidden)
	default:
		log.Printf("Post %d delete failed: %v", postID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// AddComment handles POST /community/:boardId/:postId/comments.
func (h *CommunityHandler) AddComment(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	boardID := pathID(c, "boardId")
	postID := pathID(c, "postId")
	if postID == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	_, err := h.boards.AddComment(c.Request.Context(), postID, user.UserID, c.PostForm("content"))
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, fmt.Sprintf("/community/%d/%d", boardID, postID))
	case errors.Is(err, services.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	default:
		if _, ok := services.AsValidation(err); ok {
			// Empty comment; just bounce back to the post.
			c.Redirect(http.StatusFound, fmt.Sprintf("/community/%d/%d", boardID, postID))
			return
		}
		log.Printf("Comment on post %d failed: %v", postID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// DeleteComment handles POST /community/:boardId/:postId/comments/:commentId/delete.
func (h *CommunityHandler) DeleteComment(c *gin.Context) {
	user, _ := middleware.UserFrom(c)
	boardID := pathID(c, "boardId")
	postID := pathID(c, "postId")
	commentID := pathID(c, "commentId")

	err := h.boards.DeleteComment(c.Request.Context(), commentID, postID, user.UserID)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, fmt.Sprintf("/community/%d/%d", boardID, postID))
	case errors.Is(err, services.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		c.AbortWithStatus(http.StatusForbidden)
	default:
		log.Printf("Comment %d delete failed: %v", commentID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// optionalImage stores the single optional "image" upload of a post form and
// returns nil when the form carries no file.
func (h *CommunityHandler) optionalImage(c *gin.Context, subdir string) (*string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	path, err := h.images.Save(c, file, subdir)
	if err != nil {
		return nil, err
	}
	return &path, nil
}
