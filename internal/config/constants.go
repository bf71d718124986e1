package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout    = 60 * time.Second
	ServerShutdownTimeout = 30 * time.Second
	TestTimeout           = 100 * time.Millisecond

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days
)

// Server constants
const (
	DefaultServerPort = "8080"
)

// Feedback constants
const (
	// Feedback text length bounds
	FeedbackTextMinLength = 10
	FeedbackTextMaxLength = 1000

	// Optional improvement suggestion length bound
	FeedbackSuggestionMaxLength = 500

	// Rating bounds
	FeedbackRatingMin = 1
	FeedbackRatingMax = 5

	// Listing pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Session configuration constants
const (
	// Session settings
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	// Session name
	SessionName = "studytrack-session"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:; media-src 'self' blob: data:;"
)
