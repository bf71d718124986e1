package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studytrack/internal/config"
	"studytrack/internal/models"
	"studytrack/internal/observability"
	contextutils "studytrack/internal/utils"

	"github.com/lib/pq"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the interface for user-related operations.
// This allows for easier mocking in tests.
type UserServiceInterface interface {
	CreateUserWithPassword(ctx context.Context, username, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	UpdateLastActive(ctx context.Context, userID int) error
	EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) error
	IsAdmin(ctx context.Context, userID int) (bool, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetDB() *sql.DB
}

// UserService provides methods for user management.
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

var _ UserServiceInterface = (*UserService)(nil)

// userSelectFields contains all user fields for SELECT queries
const userSelectFields = `id, username, email, password_hash, profile_image_url, is_verified, is_admin, last_active, created_at, updated_at`

// scanUserFromRow scans a database row into a models.User struct
func (s *UserService) scanUserFromRow(row *sql.Row) (result0 *models.User, err error) {
	user := &models.User{}
	err = row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.ProfileImageURL,
		&user.IsVerified, &user.IsAdmin, &user.LastActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// getUserByQuery is a shared method for getting a user by any query
func (s *UserService) getUserByQuery(ctx context.Context, query string, args ...interface{}) (result0 *models.User, err error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	var user *models.User
	user, err = s.scanUserFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found is not an error here
		}
		return nil, err
	}
	return user, nil
}

// NewUserServiceWithLogger creates a new UserService instance with logger
func NewUserServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateUserWithPassword creates a new user with password authentication
func (s *UserService) CreateUserWithPassword(ctx context.Context, username, email, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user_with_password", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	if username == "" || len(strings.TrimSpace(username)) == 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "username cannot be empty")
	}
	if s.cfg != nil && !s.cfg.IsSignupAllowed(email) {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "signups are currently disabled")
	}

	var hashedPassword []byte
	hashedPassword, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var emailValue sql.NullString
	if email != "" {
		emailValue = sql.NullString{String: email, Valid: true}
	}

	query := `INSERT INTO users (username, email, password_hash, last_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	now := time.Now()
	var id int
	err = s.db.QueryRowContext(ctx, query, username, emailValue, string(hashedPassword), now, now, now).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.ErrRecordExists
		}
		return nil, err
	}
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, "user was created but could not be retrieved from database")
	}
	return user, nil
}

// AuthenticateUser verifies user credentials and returns the user if valid
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "authenticate_user", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	var user *models.User
	user, err = s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.ErrInvalidCredentials
	}
	if !user.PasswordHash.Valid {
		return nil, contextutils.ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password))
	if err != nil {
		return nil, contextutils.ErrInvalidCredentials
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", attribute.Int("user.id", id))
	defer observability.FinishSpan(span, &err)
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectFields)
	var user *models.User
	user, err = s.getUserByQuery(ctx, query, id)
	if err != nil {
		s.logger.Error(ctx, "Database error retrieving user", err, map[string]interface{}{"user_id": id})
		return nil, err
	}
	if user == nil {
		s.logger.Debug(ctx, "User not found in database", map[string]interface{}{"user_id": id})
		return nil, nil
	}
	return user, nil
}

// GetUserByUsername retrieves a user by their username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_username", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, username)
}

// GetUserByEmail retrieves a user by their email address
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_email")
	defer observability.FinishSpan(span, &err)
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, email)
}

// UpdateLastActive updates the user's last_active timestamp
func (s *UserService) UpdateLastActive(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_last_active", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	query := "UPDATE users SET last_active = $1, updated_at = $1 WHERE id = $2"
	result, err := s.db.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update last active")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user with ID %d not found", userID)
	}
	return nil
}

// EnsureAdminUserExists creates the admin user if it does not exist and
// keeps its password in sync with the configured value.
func (s *UserService) EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ensure_admin_user_exists", attribute.String("user.username", adminUsername))
	defer observability.FinishSpan(span, &err)

	if adminUsername == "" || adminPassword == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "admin username and password are required")
	}

	user, err := s.GetUserByUsername(ctx, adminUsername)
	if err != nil {
		return contextutils.WrapError(err, "failed to look up admin user")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash admin password")
	}

	now := time.Now()
	if user == nil {
		query := `INSERT INTO users (username, password_hash, is_verified, is_admin, last_active, created_at, updated_at) VALUES ($1, $2, TRUE, TRUE, $3, $3, $3)`
		if _, err = s.db.ExecContext(ctx, query, adminUsername, string(hashedPassword), now); err != nil {
			return contextutils.WrapError(err, "failed to create admin user")
		}
		s.logger.Info(ctx, "Admin user created", map[string]interface{}{"username": adminUsername})
		return nil
	}

	// Keep the stored hash in sync with the configured password.
	if user.PasswordHash.Valid {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(adminPassword)) == nil {
			return nil
		}
	}
	query := `UPDATE users SET password_hash = $1, is_admin = TRUE, updated_at = $2 WHERE id = $3`
	if _, err = s.db.ExecContext(ctx, query, string(hashedPassword), now, user.ID); err != nil {
		return contextutils.WrapError(err, "failed to update admin password")
	}
	s.logger.Info(ctx, "Admin password updated", map[string]interface{}{"username": adminUsername})
	return nil
}

// IsAdmin checks whether the user has the admin flag set
func (s *UserService) IsAdmin(ctx context.Context, userID int) (result0 bool, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "is_admin", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	var isAdmin bool
	err = s.db.QueryRowContext(ctx, "SELECT is_admin FROM users WHERE id = $1", userID).Scan(&isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check admin flag")
	}
	return isAdmin, nil
}

// GetAllUsers retrieves all users ordered by creation time
func (s *UserService) GetAllUsers(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_all_users")
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users ORDER BY created_at ASC", userSelectFields)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query users")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err = rows.Scan(
			&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.ProfileImageURL,
			&user.IsVerified, &user.IsAdmin, &user.LastActive, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan user")
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate users")
	}
	return users, nil
}

// UpdateUserPassword replaces the user's password hash
func (s *UserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user_password", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	if newPassword == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "password cannot be empty")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}

	result, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3", string(hashedPassword), time.Now(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update password")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user with ID %d not found", userID)
	}
	return nil
}

// GetDB returns the underlying database connection
func (s *UserService) GetDB() *sql.DB {
	return s.db
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique violation
func isDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
