package middleware

import (
	"fmt"
	"strings"

	contextutils "studytrack/internal/utils"

	"github.com/xeipuuv/gojsonschema"
)

// Request body schemas, embedded so validation never depends on files at runtime.
const (
	signupSchemaJSON = `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["username", "password"],
		"additionalProperties": false,
		"properties": {
			"username": {"type": "string", "minLength": 3, "maxLength": 50},
			"email": {"type": "string", "maxLength": 255},
			"password": {"type": "string", "minLength": 8, "maxLength": 128}
		}
	}`

	loginSchemaJSON = `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["username", "password"],
		"additionalProperties": false,
		"properties": {
			"username": {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 1}
		}
	}`

	createFeedbackSchemaJSON = `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["text", "category"],
		"additionalProperties": false,
		"properties": {
			"text": {"type": "string", "minLength": 10, "maxLength": 1000},
			"category": {"type": "string", "enum": ["positive", "moderate", "general"]},
			"rating": {"type": ["integer", "null"], "minimum": 1, "maximum": 5},
			"suggestion": {"type": ["string", "null"], "maxLength": 500}
		}
	}`
)

// SchemaLoader holds compiled request body schemas keyed by name
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaLoader compiles all embedded request schemas. Panics on a bad
// schema since that is a programming error, not a runtime condition.
func NewSchemaLoader() *SchemaLoader {
	sources := map[string]string{
		"signup":          signupSchemaJSON,
		"login":           loginSchemaJSON,
		"create_feedback": createFeedbackSchemaJSON,
	}

	schemas := make(map[string]*gojsonschema.Schema, len(sources))
	for name, source := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			panic(fmt.Sprintf("failed to compile schema %q: %v", name, err))
		}
		schemas[name] = schema
	}

	return &SchemaLoader{schemas: schemas}
}

// HasSchema reports whether a schema with the given name is registered
func (sl *SchemaLoader) HasSchema(name string) bool {
	_, ok := sl.schemas[name]
	return ok
}

// ValidateData validates data against the named schema. Validation
// failures come back as an AppError carrying per-field errors.
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	schema, ok := sl.schemas[schemaName]
	if !ok {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "unknown schema %q", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return contextutils.WrapError(err, "schema validation error")
	}
	if result.Valid() {
		return nil
	}

	fields := make([]contextutils.FieldError, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		field := resultErr.Field()
		if field == "(root)" {
			// required-property failures report against the root
			if prop, ok := resultErr.Details()["property"].(string); ok {
				field = prop
			}
		}
		fields = append(fields, contextutils.FieldError{
			Field:   field,
			Message: resultErr.Description(),
		})
	}
	return contextutils.NewValidationError(fields...)
}

// DetermineRequestSchemaFromPath maps an endpoint to its request body
// schema name. Empty string means the endpoint has no body schema.
func (sl *SchemaLoader) DetermineRequestSchemaFromPath(path, method string) string {
	path = strings.TrimSuffix(path, "/")

	switch {
	case method == "POST" && path == "/v1/auth/signup":
		return "signup"
	case method == "POST" && path == "/v1/auth/login":
		return "login"
	case method == "POST" && path == "/v1/feedback":
		return "create_feedback"
	default:
		return ""
	}
}
