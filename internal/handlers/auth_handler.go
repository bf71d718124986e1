package handlers

import (
	"net/http"
	"strings"

	"studytrack/internal/config"
	"studytrack/internal/middleware"
	"studytrack/internal/observability"
	"studytrack/internal/services"
	contextutils "studytrack/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	userService services.UserServiceInterface
	config      *config.Config
	logger      *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		config:      cfg,
		logger:      logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles user registration requests
func (h *AuthHandler) Signup(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "signup")
	defer observability.FinishSpan(span, nil)

	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	span.SetAttributes(attribute.String("auth.username", req.Username))

	if req.Email != "" && !contextutils.IsValidEmail(req.Email) {
		HandleValidationError(c, "email", "email address is not valid")
		return
	}

	user, err := h.userService.CreateUserWithPassword(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordExists) {
			HandleAppError(c, contextutils.NewAppError(
				contextutils.ErrorCodeRecordExists,
				contextutils.SeverityWarn,
				"Username is already taken",
				"",
			))
			return
		}
		h.logger.Error(c.Request.Context(), "Signup failed", err, map[string]interface{}{"username": req.Username})
		HandleAppError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.UserIDKey, user.ID)
	session.Set(middleware.UsernameKey, user.Username)
	if err := session.Save(); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	respondSuccess(c, http.StatusCreated, gin.H{
		"message": "Signup successful",
		"user":    user,
	})
}

// Login handles user login requests
func (h *AuthHandler) Login(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	span.SetAttributes(
		attribute.String("auth.username", req.Username),
		attribute.Bool("auth.password_provided", req.Password != ""),
	)

	user, err := h.userService.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn(c.Request.Context(), "Authentication failed for user", map[string]interface{}{"username": req.Username})
		HandleAppError(c, contextutils.ErrInvalidCredentials)
		return
	}
	if user == nil {
		HandleAppError(c, contextutils.ErrInvalidCredentials)
		return
	}

	span.SetAttributes(
		attribute.Int("user.id", user.ID),
		attribute.String("user.username", user.Username),
	)

	if err := h.userService.UpdateLastActive(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn(c.Request.Context(), "Failed to update last active for user", map[string]interface{}{"user_id": user.ID, "error": err.Error()})
	}

	session := sessions.Default(c)
	session.Set(middleware.UserIDKey, user.ID)
	session.Set(middleware.UsernameKey, user.Username)
	if err := session.Save(); err != nil {
		h.logger.Error(c.Request.Context(), "Failed to save session", err, map[string]interface{}{"error": err.Error()})
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user,
	})
}

// Logout handles user logout requests
func (h *AuthHandler) Logout(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	session := sessions.Default(c)
	if userID := session.Get(middleware.UserIDKey); userID != nil {
		span.SetAttributes(attribute.Int("user.id", userID.(int)))
	}

	session.Clear()
	if err := session.Save(); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to clear session"))
		return
	}

	respondMessage(c, "Logout successful")
}

// Status returns the current authentication status
func (h *AuthHandler) Status(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "auth_status")
	defer observability.FinishSpan(span, nil)

	session := sessions.Default(c)
	userID := session.Get(middleware.UserIDKey)
	if userID == nil {
		span.SetAttributes(attribute.Bool("auth.authenticated", false))
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"user":          nil,
		})
		return
	}

	span.SetAttributes(
		attribute.Bool("auth.authenticated", true),
		attribute.Int("user.id", userID.(int)),
	)

	user, err := h.userService.GetUserByID(c.Request.Context(), userID.(int))
	if err != nil {
		h.logger.Error(c.Request.Context(), "Error getting user by ID", err, map[string]interface{}{"user_id": userID.(int)})
		HandleAppError(c, contextutils.ErrInternalError)
		return
	}
	if user == nil {
		// Stale session referencing a deleted user
		session.Clear()
		if err := session.Save(); err != nil {
			h.logger.Error(c.Request.Context(), "Error saving session", err, map[string]interface{}{"error": err.Error()})
		}
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"user":          nil,
		})
		return
	}

	if err := h.userService.UpdateLastActive(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn(c.Request.Context(), "Error updating last active", map[string]interface{}{"user_id": user.ID})
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          user,
	})
}

// Check is a lightweight auth-check endpoint intended for reverse proxy auth_request.
// Unauthenticated requests are rejected by the RequireAuth middleware with 401.
func (h *AuthHandler) Check(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ListUsers returns all registered users. Admin-gated by RequireAdmin.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_users")
	defer observability.FinishSpan(span, nil)

	users, err := h.userService.GetAllUsers(c.Request.Context())
	if err != nil {
		h.logger.Error(c.Request.Context(), "Failed to list users", err, nil)
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))
	respondSuccess(c, http.StatusOK, gin.H{
		"users": users,
	})
}
