package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wisemarket1122/wisemarket/internal/api/middleware"
	"github.com/wisemarket1122/wisemarket/internal/services"
	"github.com/wisemarket1122/wisemarket/internal/session"
	"github.com/wisemarket1122/wisemarket/internal/view"
)

// MyPageHandler serves the my-page views: profile, own listings, own posts.
type MyPageHandler struct {
	users    services.IUserService
	listings services.IListingService
	boards   services.IBoardService
	sessions session.Store
	view     view.Renderer
}

// NewMyPageHandler creates a new MyPageHandler.
func NewMyPageHandler(users services.IUserService, listings services.IListingService, boards services.IBoardService, sessions session.Store, renderer view.Renderer) *MyPageHandler {
	return &MyPageHandler{users: users, listings: listings, boards: boards, sessions: sessions, view: renderer}
}

// Show handles GET /mypage.
func (h *MyPageHandler) Show(c *gin.Context) {
	user, _ := middleware.UserFrom(c)

	profile, err := h.users.FindByID(c.Request.Context(), user.UserID)
	if err != nil {
		log.Printf("Profile load of user %d failed: %v", user.UserID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	items, err := h.listings.ListBySeller(c.Request.Context(), user.UserID)
	if err != nil {
		log.Printf("Listing load of user %d failed: %v", user.UserID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	posts, err := h.boards.ListPostsByAuthor(c.Request.Context(), user.UserID)
	if err != nil {
		log.Printf("Post load of user %d failed: %v", user.UserID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	h.view.HTML(c, http.StatusOK, "mypage/index", gin.H{
		"profile": profile,
		"items":   items,
		"posts":   posts,
		"notice":  c.Query("notice"),
	})
}

// UpdateProfile handles POST /mypage/edit: nickname and optional password
// change. A successful nickname change is reflected in the live session.
func (h *MyPageHandler) UpdateProfile(c *gin.Context) {
	user, _ := middleware.UserFrom(c)

	updated, err := h.users.UpdateProfile(c.Request.Context(), user.UserID, services.ProfileUpdate{
		Nickname:           c.PostForm("nickname"),
		CurrentPassword:    c.PostForm("currentPassword"),
		NewPassword:        c.PostForm("newPassword"),
		NewPasswordConfirm: c.PostForm("newPasswordConfirm"),
	})
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			c.Redirect(http.StatusFound, "/mypage?notice="+queryEscape(ve.Msg))
			return
		}
		log.Printf("Profile update of user %d failed: %v", user.UserID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	if sessionID, ok := middleware.SessionIDFrom(c); ok {
		err := h.sessions.Update(c.Request.Context(), sessionID, session.User{
			UserID:   updated.ID,
			Email:    updated.Email,
			Nickname: updated.Nickname,
		})
		if err != nil {
			log.Printf("Session refresh for user %d failed: %v", user.UserID, err)
		}
	}

	c.Redirect(http.StatusFound, "/mypage?notice="+queryEscape("Profile updated."))
}

// DeleteAccount handles POST /mypage/delete-account: the account and everything it
// owns go away, then the session.
func (h *MyPageHandler) DeleteAccount(c *gin.Context) {
	user, _ := middleware.UserFrom(c)

	if err := h.users.DeleteAccount(c.Request.Context(), user.UserID); err != nil {
		log.Printf("Account delete of user %d failed: %v", user.UserID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	if sessionID, ok := middleware.SessionIDFrom(c); ok {
		if err := h.sessions.Destroy(c.Request.Context(), sessionID); err != nil {
			log.Printf("Session destroy failed: %v", err)
		}
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}
