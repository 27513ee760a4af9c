package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wisemarket1122/wisemarket/internal/api/middleware"
	"github.com/wisemarket1122/wisemarket/internal/config"
	"github.com/wisemarket1122/wisemarket/internal/services"
	"github.com/wisemarket1122/wisemarket/internal/session"
	"github.com/wisemarket1122/wisemarket/internal/view"
)

// invalidCredentialsMsg is shown for every login failure. Unknown email,
// wrong password and unverified account must be indistinguishable.
const invalidCredentialsMsg = "Incorrect email or password."

// AuthHandler serves signup, verification, login and logout.
type AuthHandler struct {
	users    services.IUserService
	sessions session.Store
	cfg      *config.Config
	view     view.Renderer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.IUserService, sessions session.Store, cfg *config.Config, renderer view.Renderer) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, cfg: cfg, view: renderer}
}

// ShowLogin handles GET /auth/login.
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if _, ok := middleware.UserFrom(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.view.HTML(c, http.StatusOK, "auth/login", gin.H{
		"notice": c.Query("notice"),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	emailAddr := c.PostForm("email")
	password := c.PostForm("password")
	remember := c.PostForm("rememberMe") != ""

	user, err := h.users.Authenticate(c.Request.Context(), emailAddr, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.view.HTML(c, http.StatusUnauthorized, "auth/login", gin.H{
				"error": invalidCredentialsMsg,
				"email": emailAddr,
			})
			return
		}
		log.Printf("Login for %s failed: %v", emailAddr, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	ttl := h.cfg.SessionTTL
	cookieMaxAge := 0 // session cookie, dropped when the browser closes
	if remember {
		ttl = h.cfg.RememberTTL
		cookieMaxAge = int(ttl.Seconds())
	}

	sessionID, err := h.sessions.Create(c.Request.Context(), session.User{
		UserID:   user.ID,
		Email:    user.Email,
		Nickname: user.Nickname,
	}, ttl)
	if err != nil {
		log.Printf("Session create for user %d failed: %v", user.ID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.SetCookie(middleware.SessionCookie, sessionID, cookieMaxAge, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

// ShowSignup handles GET /auth/signup.
func (h *AuthHandler) ShowSignup(c *gin.Context) {
	if _, ok := middleware.UserFrom(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.view.HTML(c, http.StatusOK, "auth/signup", gin.H{
		"campusDomain": h.cfg.CampusEmailDomain,
	})
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	emailAddr := c.PostForm("email")
	nickname := c.PostForm("nickname")
	password := c.PostForm("password")
	passwordConfirm := c.PostForm("passwordConfirm")

	result, err := h.users.Register(c.Request.Context(), emailAddr, password, passwordConfirm, nickname)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			h.view.HTML(c, http.StatusBadRequest, "auth/signup", gin.H{
				"error":        ve.Msg,
				"email":        emailAddr,
				"nickname":     nickname,
				"campusDomain": h.cfg.CampusEmailDomain,
			})
			return
		}
		log.Printf("Signup for %s failed: %v", emailAddr, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	notice := "Account created. Check your inbox for the verification link."
	if !result.MailSent {
		notice = "Account created, but the verification mail could not be sent. Please contact support."
	}
	c.Redirect(http.StatusFound, "/auth/login?notice="+queryEscape(notice))
}

// Verify handles GET /auth/verify. The token is single-use; a second visit
// with the same link lands on the failure page.
func (h *AuthHandler) Verify(c *gin.Context) {
	err := h.users.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.view.HTML(c, http.StatusNotFound, "auth/verify", gin.H{
				"ok":    false,
				"error": "This verification link is invalid or was already used.",
			})
			return
		}
		log.Printf("Email verification failed: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	h.view.HTML(c, http.StatusOK, "auth/verify", gin.H{"ok": true})
}

// CheckEmail handles GET /auth/check-email?email=, the signup form's live
// availability check. ok reports availability: a registered email answers
// with ok false.
func (h *AuthHandler) CheckEmail(c *gin.Context) {
	emailAddr := c.Query("email")
	if emailAddr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "email is required"})
		return
	}

	exists, err := h.users.EmailExists(c.Request.Context(), emailAddr)
	if err != nil {
		log.Printf("Email availability check failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "internal error"})
		return
	}

	message := "This email is available."
	if exists {
		message = "This email is already registered."
	}
	c.JSON(http.StatusOK, gin.H{"ok": !exists, "exists": exists, "message": message})
}

// Logout handles GET /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID, ok := middleware.SessionIDFrom(c); ok {
		if err := h.sessions.Destroy(c.Request.Context(), sessionID); err != nil {
			log.Printf("Session destroy failed: %v", err)
		}
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}
