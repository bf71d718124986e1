package handlers

import (
	"net/http"

	"studytrack/internal/middleware"
	contextutils "studytrack/internal/utils"

	"github.com/gin-gonic/gin"
)

// HandleAppError handles any error and sends the structured error envelope
func HandleAppError(c *gin.Context, err error) {
	if appErr, ok := err.(*contextutils.AppError); ok {
		middleware.StandardizeAppError(c, appErr)
		return
	}

	// Fallback for non-AppError types
	middleware.StandardizeAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInternalError,
		contextutils.SeverityError,
		"Internal server error",
		err.Error(),
	))
}

// HandleValidationError handles a single-field validation failure
func HandleValidationError(c *gin.Context, field, reason string) {
	middleware.StandardizeAppError(c, contextutils.NewValidationError(
		contextutils.FieldError{Field: field, Message: reason},
	))
}

// respondSuccess writes a success envelope around data
func respondSuccess(c *gin.Context, statusCode int, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(statusCode, body)
}

// respondMessage writes a success envelope carrying only a message
func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}
