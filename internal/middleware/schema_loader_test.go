package middleware

import (
	"testing"

	contextutils "studytrack/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaLoader_CompilesAllSchemas(t *testing.T) {
	sl := NewSchemaLoader()

	assert.True(t, sl.HasSchema("signup"))
	assert.True(t, sl.HasSchema("login"))
	assert.True(t, sl.HasSchema("create_feedback"))
	assert.False(t, sl.HasSchema("nonexistent"))
}

func TestSchemaLoader_ValidateData_CreateFeedback(t *testing.T) {
	sl := NewSchemaLoader()

	t.Run("valid body", func(t *testing.T) {
		err := sl.ValidateData(map[string]interface{}{
			"text":     "This app helped me study daily",
			"category": "positive",
			"rating":   5,
		}, "create_feedback")
		assert.NoError(t, err)
	})

	t.Run("valid body without optional fields", func(t *testing.T) {
		err := sl.ValidateData(map[string]interface{}{
			"text":     "A general note about the UI",
			"category": "general",
		}, "create_feedback")
		assert.NoError(t, err)
	})

	t.Run("text too short", func(t *testing.T) {
		err := sl.ValidateData(map[string]interface{}{
			"text":     "short",
			"category": "general",
		}, "create_feedback")
		require.Error(t, err)

		appErr, ok := err.(*contextutils.AppError)
		require.True(t, ok)
		assert.Equal(t, contextutils.ErrorCodeValidationFailed, appErr.Code)
		require.NotEmpty(t, appErr.Fields)
		assert.Equal(t, "text", appErr.Fields[0].Field)
	})

	t.Run("invalid category", func(t *testing.T) {
		err := sl.ValidateData(map[string]interface{}{
			"text":     "Long enough feedback text here",
			"category": "rant",
		}, "create_feedback")
		require.Error(t, err)
	})

	t.Run("rating out of range", func(t *testing.T) {
		err := sl.ValidateData(map[string]interface{}{
			"text":     "Long enough feedback text here",
			"category": "positive",
			"rating":   9,
		}, "create_feedback")
		require.Error(t, err)
	})

	t.Run("missing required fields reported by name", func(t *testing.T) {
		err := sl.ValidateData(map[string]interface{}{
			"category": "general",
		}, "create_feedback")
		require.Error(t, err)

		appErr, ok := err.(*contextutils.AppError)
		require.True(t, ok)
		require.NotEmpty(t, appErr.Fields)
		assert.Equal(t, "text", appErr.Fields[0].Field)
	})

	t.Run("unknown property rejected", func(t *testing.T) {
		err := sl.ValidateData(map[string]interface{}{
			"text":     "Long enough feedback text here",
			"category": "general",
			"extra":    true,
		}, "create_feedback")
		require.Error(t, err)
	})
}

func TestSchemaLoader_ValidateData_Signup(t *testing.T) {
	sl := NewSchemaLoader()

	err := sl.ValidateData(map[string]interface{}{
		"username": "learner",
		"password": "password123",
	}, "signup")
	assert.NoError(t, err)

	err = sl.ValidateData(map[string]interface{}{
		"username": "learner",
		"password": "short",
	}, "signup")
	assert.Error(t, err)
}

func TestSchemaLoader_ValidateData_UnknownSchema(t *testing.T) {
	sl := NewSchemaLoader()

	err := sl.ValidateData(map[string]interface{}{}, "does_not_exist")
	require.Error(t, err)
}

func TestSchemaLoader_DetermineRequestSchemaFromPath(t *testing.T) {
	sl := NewSchemaLoader()

	tests := []struct {
		path     string
		method   string
		expected string
	}{
		{"/v1/auth/signup", "POST", "signup"},
		{"/v1/auth/login", "POST", "login"},
		{"/v1/feedback", "POST", "create_feedback"},
		{"/v1/feedback/", "POST", "create_feedback"},
		{"/v1/feedback", "GET", ""},
		{"/v1/feedback/5/upvote", "PUT", ""},
		{"/v1/unknown", "POST", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, sl.DetermineRequestSchemaFromPath(tt.path, tt.method))
		})
	}
}
