package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"studytrack/internal/observability"
	contextutils "studytrack/internal/utils"

	"github.com/gin-gonic/gin"
)

// Global schema loader instance
var globalSchemaLoader *SchemaLoader

// initSchemaLoader initializes the global schema loader once
func initSchemaLoader() *SchemaLoader {
	if globalSchemaLoader == nil {
		globalSchemaLoader = NewSchemaLoader()
	}
	return globalSchemaLoader
}

// RequestValidationMiddleware validates JSON request bodies against the
// registered schema for the endpoint before the handler runs.
func RequestValidationMiddleware(logger *observability.Logger) gin.HandlerFunc {
	schemaLoader := initSchemaLoader()

	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_validation")
		defer span.End()

		path := c.Request.URL.Path
		method := c.Request.Method

		schemaName := schemaLoader.DetermineRequestSchemaFromPath(path, method)
		if schemaName == "" {
			c.Next()
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			logger.Warn(ctx, "Failed to read request body", map[string]interface{}{
				"method": method,
				"path":   path,
				"error":  err.Error(),
			})
			c.Next()
			return
		}
		// Restore the body so handlers can read it
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		var requestData interface{}
		if err := json.Unmarshal(body, &requestData); err != nil {
			StandardizeAppError(c, contextutils.NewAppError(
				contextutils.ErrorCodeInvalidFormat,
				contextutils.SeverityWarn,
				"Request body is not valid JSON",
				"",
			))
			c.Abort()
			return
		}

		if err := schemaLoader.ValidateData(requestData, schemaName); err != nil {
			logger.Warn(ctx, "Request validation failed", map[string]interface{}{
				"method":      method,
				"path":        path,
				"schema_name": schemaName,
				"error":       err.Error(),
			})

			if appErr, ok := err.(*contextutils.AppError); ok {
				StandardizeAppError(c, appErr)
			} else {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"code":    string(contextutils.ErrorCodeValidationFailed),
					"message": "Request data does not match the API specification",
				})
			}
			c.Abort()
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		c.Next()
	}
}
