package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wisemarket1122/wisemarket/internal/session"
)

const (
	// SessionCookie is the name of the browser session cookie.
	SessionCookie = "wm_session"
	// ContextKeyUser holds the key for the logged-in user in Gin context.
	ContextKeyUser = "currentUser"
	// ContextKeySessionID holds the key for the session ID in Gin context.
	ContextKeySessionID = "sessionID"
)

// CurrentUser resolves the session cookie into the logged-in user and puts
// it on the request context. Requests without a valid session pass through
// anonymously. Each authenticated request touches the session, rolling its
// server-side expiry forward to at least ttl.
func CurrentUser(store session.Store, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookie)
		if err != nil || sessionID == "" {
			c.Next()
			return
		}
		user, err := store.Get(c.Request.Context(), sessionID)
		if err != nil {
			// Expired or unknown session; treat as anonymous.
			c.Next()
			return
		}
		if err := store.Touch(c.Request.Context(), sessionID, ttl); err != nil {
			log.Printf("Session %s touch failed: %v", sessionID, err)
		}
		c.Set(ContextKeyUser, user)
		c.Set(ContextKeySessionID, sessionID)
		c.Next()
	}
}

// RequireLogin redirects anonymous requests to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserFrom(c); !ok {
			c.Redirect(http.StatusFound, "/auth/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserFrom returns the logged-in user attached by CurrentUser, if any.
func UserFrom(c *gin.Context) (*session.User, bool) {
	value, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*session.User)
	return user, ok
}

// SessionIDFrom returns the session ID attached by CurrentUser, if any.
func SessionIDFrom(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextKeySessionID)
	if !exists {
		return "", false
	}
	sessionID, ok := value.(string)
	return sessionID, ok
}
