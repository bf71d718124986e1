// Package main provides a utility to set up the test database with initial data.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"studytrack/internal/config"
	"studytrack/internal/database"
	"studytrack/internal/models"
	"studytrack/internal/observability"
	"studytrack/internal/serviceinterfaces"
	"studytrack/internal/services"
	contextutils "studytrack/internal/utils"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// TestUser represents a user in the test data files
type TestUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	IsAdmin  bool   `yaml:"is_admin"`
}

// TestUsers represents a collection of test users
type TestUsers struct {
	Users []TestUser `yaml:"users"`
}

// TestFeedback represents the feedback entries in the test data files
type TestFeedback struct {
	FeedbackItems []struct {
		Username   string   `yaml:"username"`
		Text       string   `yaml:"text"`
		Category   string   `yaml:"category"`
		Rating     *int     `yaml:"rating"`
		Suggestion *string  `yaml:"suggestion"`
		Upvoters   []string `yaml:"upvoters"`
	} `yaml:"feedback_items"`
}

// TestFeedbackData represents created feedback for the E2E test artifact
type TestFeedbackData struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Upvotes  int    `json:"upvotes"`
}

// TestUserData represents created users for the E2E test artifact (no secrets)
type TestUserData struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

func resetTestDatabase(databaseURL, testDB string, logger *observability.Logger) error {
	ctx := context.Background()

	// Create admin connection string by replacing the database name with 'postgres'
	// This connects to the admin database to drop/create the test database
	adminConnStr := strings.Replace(databaseURL, "/"+testDB+"?", "/postgres?", 1)
	if !strings.Contains(adminConnStr, "/postgres?") {
		// Handle case where there's no query string
		adminConnStr = strings.Replace(databaseURL, "/"+testDB, "/postgres", 1)
	}

	logger.Info(ctx, "Connecting to admin database", map[string]interface{}{"connection_string": adminConnStr})
	adminDB, err := sql.Open("postgres", adminConnStr)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseConnection, "failed to connect to postgres database for drop/create: %v", err)
	}
	defer func() {
		if err := adminDB.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close adminDB", map[string]interface{}{"error": err.Error()})
		}
	}()

	logger.Info(ctx, "Terminating connections to test DB", map[string]interface{}{"database": testDB})
	_, err = adminDB.Exec(fmt.Sprintf(`
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = '%s' AND pid <> pg_backend_pid();
	`, testDB))
	if err != nil {
		logger.Warn(ctx, "Warning: failed to terminate connections", map[string]interface{}{"error": err.Error()})
	}

	logger.Info(ctx, "Dropping test database", map[string]interface{}{"database": testDB})
	_, err = adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE);", testDB))
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to drop test database: %v", err)
	}
	logger.Info(ctx, "Successfully dropped test database", map[string]interface{}{"database": testDB})

	logger.Info(ctx, "Creating test database", map[string]interface{}{"database": testDB})
	_, err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s;", testDB))
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to create test database: %v", err)
	}
	logger.Info(ctx, "Successfully created test database", map[string]interface{}{"database": testDB})

	logger.Info(ctx, "Test database reset complete")
	return nil
}

func main() {
	ctx := context.Background()

	// CLI flags
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	flag.Parse()

	// Load configuration first
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup observability (tracing/metrics). Suppress logger creation here to avoid startup noise.
	originalLogging := cfg.OpenTelemetry.EnableLogging
	cfg.OpenTelemetry.EnableLogging = false
	tp, mp, _, err := observability.SetupObservability(&cfg.OpenTelemetry, "setup-test-db")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	// Create logger with level based on --verbose flag
	logLevel := zapcore.WarnLevel
	if *verbose {
		logLevel = zapcore.InfoLevel
	}
	// Restore config flag for logger construction (to allow OTLP exporter if enabled)
	cfg.OpenTelemetry.EnableLogging = originalLogging
	logger := observability.NewLoggerWithLevel(&cfg.OpenTelemetry, logLevel)
	defer func() {
		if tp != nil {
			if err := observability.ShutdownTracerProvider(context.TODO(), tp); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	// Get DB connection info from env or use defaults
	dbUser := "studytrack_user"
	dbPassword := "studytrack_password"
	dbHost := "localhost"
	dbPort := "5433"
	testDB := "studytrack_test_db"

	// Allow override from DATABASE_URL
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, testDB)
	}

	logger.Info(ctx, "Using database URL", map[string]interface{}{"database_url": databaseURL})

	// --- Drop and recreate the test database ---
	if err := resetTestDatabase(databaseURL, testDB, logger); err != nil {
		logger.Error(ctx, "Failed to reset test database", err)
		os.Exit(1)
	}

	// Now connect to the new test database
	logger.Info(ctx, "Connecting to database", map[string]interface{}{"database_url": databaseURL})

	// Initialize database manager with logger; InitDB runs migrations
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDB(databaseURL)
	if err != nil {
		logger.Error(ctx, "Failed to initialize database", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database", map[string]interface{}{"error": err.Error()})
		}
	}()

	// Get the root directory (backend is the working directory)
	rootDir, err := os.Getwd()
	if err != nil {
		logger.Error(ctx, "Failed to get working directory", err)
		os.Exit(1)
	}

	// Initialize services
	userService := services.NewUserServiceWithLogger(db, cfg, logger)
	feedbackService := services.NewFeedbackService(db, logger)

	// Ensure admin user exists
	if err := userService.EnsureAdminUserExists(ctx, "admin", "password"); err != nil {
		logger.Error(ctx, "Failed to ensure admin user exists", err)
		os.Exit(1)
	}

	// Load and insert test data
	users, testUsers, err := loadAndCreateUsers(ctx, filepath.Join(rootDir, "data", "test_users.yaml"), userService, logger)
	if err != nil {
		logger.Error(ctx, "Failed to setup users", err)
		os.Exit(1)
	}

	feedback, err := loadAndCreateFeedback(ctx, filepath.Join(rootDir, "data", "test_feedback.yaml"), users, feedbackService, logger)
	if err != nil {
		logger.Error(ctx, "Failed to setup feedback", err)
		os.Exit(1)
	}

	// Output data to JSON files for E2E tests
	if err := outputUserDataForTests(users, testUsers, rootDir, logger); err != nil {
		logger.Error(ctx, "Failed to output user data for tests", err)
		os.Exit(1)
	}
	if err := outputFeedbackDataForTests(feedback, rootDir, logger); err != nil {
		logger.Error(ctx, "Failed to output feedback data for tests", err)
		os.Exit(1)
	}

	logger.Info(ctx, "Test database created successfully")
}

func loadAndCreateUsers(ctx context.Context, filePath string, userService *services.UserService, logger *observability.Logger) (map[string]*models.User, map[string]TestUser, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, err
	}

	var testUsers TestUsers
	if err := yaml.Unmarshal(data, &testUsers); err != nil {
		return nil, nil, err
	}

	users := make(map[string]*models.User)
	byName := make(map[string]TestUser)
	for _, testUser := range testUsers.Users {
		user, err := userService.CreateUserWithPassword(ctx, testUser.Username, testUser.Email, testUser.Password)
		if err != nil {
			return nil, nil, contextutils.WrapErrorf(err, "failed to create user %s", testUser.Username)
		}

		if testUser.IsAdmin {
			if _, err := userService.GetDB().ExecContext(ctx, "UPDATE users SET is_admin = TRUE WHERE id = $1", user.ID); err != nil {
				return nil, nil, contextutils.WrapErrorf(err, "failed to grant admin to user %s", testUser.Username)
			}
		}

		logger.Info(ctx, "Created test user", map[string]interface{}{
			"username": testUser.Username,
			"user_id":  user.ID,
			"is_admin": testUser.IsAdmin,
		})

		users[testUser.Username] = user
		byName[testUser.Username] = testUser
	}

	return users, byName, nil
}

// loadAndCreateFeedback loads and creates feedback items from test data
func loadAndCreateFeedback(ctx context.Context, filePath string, users map[string]*models.User, feedbackService *services.FeedbackService, logger *observability.Logger) (map[string]TestFeedbackData, error) {
	feedback := make(map[string]TestFeedbackData)
	data, err := os.ReadFile(filePath)
	if err != nil {
		// Feedback file is optional, so just return if it doesn't exist
		logger.Info(ctx, "Feedback file not found, skipping", map[string]interface{}{
			"file_path": filePath,
		})
		return feedback, nil
	}

	var testFeedback TestFeedback
	if err := yaml.Unmarshal(data, &testFeedback); err != nil {
		return feedback, contextutils.WrapError(err, "failed to parse feedback data")
	}

	for i, feedbackData := range testFeedback.FeedbackItems {
		user, exists := users[feedbackData.Username]
		if !exists {
			return feedback, contextutils.ErrorWithContextf("user not found for feedback: %s", feedbackData.Username)
		}

		category := feedbackData.Category
		if category == "" {
			category = string(models.FeedbackCategoryGeneral)
		}

		item, err := feedbackService.CreateFeedback(ctx, user.ID, serviceinterfaces.CreateFeedbackRequest{
			Text:       feedbackData.Text,
			Category:   models.FeedbackCategory(category),
			Rating:     feedbackData.Rating,
			Suggestion: feedbackData.Suggestion,
		})
		if err != nil {
			return feedback, contextutils.WrapErrorf(err, "failed to insert feedback %d", i)
		}

		upvotes := 0
		for _, voter := range feedbackData.Upvoters {
			voterUser, exists := users[voter]
			if !exists {
				return feedback, contextutils.ErrorWithContextf("upvoter not found for feedback: %s", voter)
			}
			upvoted, count, err := feedbackService.ToggleUpvote(ctx, item.ID, voterUser.ID)
			if err != nil {
				return feedback, contextutils.WrapErrorf(err, "failed to upvote feedback %d as %s", item.ID, voter)
			}
			if upvoted {
				upvotes = count
			}
		}

		// Store feedback data for test output
		feedbackKey := fmt.Sprintf("%s_%d", feedbackData.Username, i)
		feedback[feedbackKey] = TestFeedbackData{
			ID:       item.ID,
			Username: feedbackData.Username,
			Text:     feedbackData.Text,
			Category: category,
			Upvotes:  upvotes,
		}

		logger.Info(ctx, "Created test feedback", map[string]interface{}{
			"username":    feedbackData.Username,
			"feedback_id": item.ID,
			"category":    category,
			"upvotes":     upvotes,
		})
	}

	return feedback, nil
}

// outputUserDataForTests outputs the created user data to a JSON file for E2E tests to read
func outputUserDataForTests(users map[string]*models.User, testUsers map[string]TestUser, rootDir string, logger *observability.Logger) error {
	outputPath := filepath.Join(rootDir, "..", "frontend", "tests", "test-users.json")

	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return contextutils.WrapErrorf(err, "failed to create output directory: %s", outputDir)
	}

	out := make(map[string]TestUserData)
	for username, user := range users {
		spec := testUsers[username]
		out[username] = TestUserData{
			ID:       user.ID,
			Username: username,
			Email:    spec.Email,
			Password: spec.Password,
			IsAdmin:  spec.IsAdmin,
		}
	}

	jsonData, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to marshal user data to JSON")
	}

	if err := os.WriteFile(outputPath, jsonData, 0o644); err != nil {
		return contextutils.WrapErrorf(err, "failed to write user data to file: %s", outputPath)
	}

	logger.Info(context.Background(), "Output user data for E2E tests", map[string]interface{}{
		"file_path":  outputPath,
		"user_count": len(out),
	})

	return nil
}

// outputFeedbackDataForTests outputs the created feedback data to a JSON file for E2E tests to read
func outputFeedbackDataForTests(feedback map[string]TestFeedbackData, rootDir string, logger *observability.Logger) error {
	outputPath := filepath.Join(rootDir, "..", "frontend", "tests", "test-feedback.json")

	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return contextutils.WrapErrorf(err, "failed to create output directory: %s", outputDir)
	}

	jsonData, err := json.MarshalIndent(feedback, "", "  ")
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to marshal feedback data to JSON")
	}

	if err := os.WriteFile(outputPath, jsonData, 0o644); err != nil {
		return contextutils.WrapErrorf(err, "failed to write feedback data to file: %s", outputPath)
	}

	logger.Info(context.Background(), "Output feedback data for E2E tests", map[string]interface{}{
		"file_path":      outputPath,
		"feedback_count": len(feedback),
	})

	return nil
}
