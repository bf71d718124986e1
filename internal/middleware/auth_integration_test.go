//go:build integration

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

func setupGinWithAuth() *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	store := cookie.NewStore([]byte("test-secret-key"))
	router.Use(sessions.Sessions("test-session", store))

	return router
}

func authSessionCookie(t *testing.T, router *gin.Engine, values map[string]interface{}) *http.Cookie {
	router.GET("/setup-session", func(c *gin.Context) {
		session := sessions.Default(c)
		for k, v := range values {
			session.Set(k, v)
		}
		require.NoError(t, session.Save())
		c.JSON(http.StatusOK, gin.H{"message": "session set"})
	})

	req, _ := http.NewRequest("GET", "/setup-session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestAuth_ContextValues_Integration(t *testing.T) {
	router := setupGinWithAuth()

	router.GET("/check-context", RequireAuth(), func(c *gin.Context) {
		userID, exists := c.Get(UserIDKey)
		assert.True(t, exists)
		assert.Equal(t, 42, userID)

		username, exists := c.Get(UsernameKey)
		assert.True(t, exists)
		assert.Equal(t, "contextuser", username)

		c.JSON(http.StatusOK, gin.H{
			"user_id":  userID,
			"username": username,
		})
	})

	sessionCookie := authSessionCookie(t, router, map[string]interface{}{
		UserIDKey:   42,
		UsernameKey: "contextuser",
	})

	req, _ := http.NewRequest("GET", "/check-context", nil)
	req.AddCookie(sessionCookie)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "contextuser")
	assert.Contains(t, w.Body.String(), "42")
}

func TestAuth_InvalidSessionCookie_Integration(t *testing.T) {
	router := setupGinWithAuth()

	router.GET("/protected", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{
		Name:  "test-session",
		Value: "invalid-session-data",
		Path:  "/",
	})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication required")
}

func TestAuth_SessionCorruption_Integration(t *testing.T) {
	router := setupGinWithAuth()

	router.GET("/protected", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	sessionCookie := authSessionCookie(t, router, map[string]interface{}{
		UserIDKey:   "not-an-integer",
		UsernameKey: 12345,
	})

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.AddCookie(sessionCookie)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_MultipleRequests_SameSession_Integration(t *testing.T) {
	router := setupGinWithAuth()

	counter := 0
	router.GET("/protected", RequireAuth(), func(c *gin.Context) {
		counter++
		c.JSON(http.StatusOK, gin.H{
			"counter": counter,
			"user":    c.GetString(UsernameKey),
		})
	})

	sessionCookie := authSessionCookie(t, router, map[string]interface{}{
		UserIDKey:   1,
		UsernameKey: "testuser",
	})

	for i := 1; i <= 3; i++ {
		req, _ := http.NewRequest("GET", "/protected", nil)
		req.AddCookie(sessionCookie)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "testuser")
		assert.Contains(t, w.Body.String(), fmt.Sprintf(`"counter":%d`, i))
	}
}
