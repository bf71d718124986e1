//go:build test

package config

// Test data constants - only available during testing
const (
	// Mock user IDs
	TestUserID = 123

	// Mock feedback data
	MockFeedbackID   = 7
	MockUpvoteCount  = 3
	MockAverageScore = 4.5
)
