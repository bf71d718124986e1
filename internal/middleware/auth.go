// Package middleware provides authentication and authorization middleware for the Gin web framework.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys for storing user information
const (
	// UserIDKey is the key used to store user ID in session
	UserIDKey = "user_id"
	// UsernameKey is the key used to store username in session
	UsernameKey = "username"
)

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"code":    "UNAUTHORIZED",
		"message": "Authentication required",
	})
	c.Abort()
}

// sessionUser extracts and validates the user identity from the session.
// Returns false when the session carries no usable identity.
func sessionUser(c *gin.Context) (int, string, bool) {
	session := sessions.Default(c)

	userID := session.Get(UserIDKey)
	if userID == nil {
		return 0, "", false
	}
	userIDInt, ok := userID.(int)
	if !ok {
		// JSON numbers round-trip through the session store as float64
		userIDFloat, ok := userID.(float64)
		if !ok {
			return 0, "", false
		}
		userIDInt = int(userIDFloat)
	}

	username := session.Get(UsernameKey)
	if username == nil {
		return 0, "", false
	}
	usernameStr, ok := username.(string)
	if !ok || usernameStr == "" {
		return 0, "", false
	}

	return userIDInt, usernameStr, true
}

// RequireAuth returns a middleware that requires authentication
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := sessionUser(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		// Store user info in context for handlers to use
		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, username)

		c.Next()
	}
}

// RequireAdmin returns a middleware that requires authentication and the admin flag
func RequireAdmin(userService interface{}) gin.HandlerFunc {
	us, ok := userService.(interface {
		IsAdmin(ctx context.Context, userID int) (bool, error)
	})
	if !ok {
		panic("userService must implement IsAdmin method")
	}

	return func(c *gin.Context) {
		userID, username, ok := sessionUser(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		isAdmin, err := us.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"code":    "INTERNAL_SERVER_ERROR",
				"message": "Failed to check admin status",
			})
			c.Abort()
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"code":    "FORBIDDEN",
				"message": "Admin access required",
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, username)

		c.Next()
	}
}
