//go:build integration

package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"studytrack/internal/config"
	"studytrack/internal/observability"
	contextutils "studytrack/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDBForUser(t *testing.T) *sql.DB {
	return SharedTestDBSetup(t)
}

func newTestUserService(t *testing.T, db *sql.DB) *UserService {
	cfg, err := config.NewConfig()
	require.NoError(t, err)
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewUserServiceWithLogger(db, cfg, logger)
}

func TestUserService_CreateUserWithPassword_Integration(t *testing.T) {
	db := setupTestDBForUser(t)
	defer db.Close()

	service := newTestUserService(t, db)

	username := fmt.Sprintf("testuser_%d", time.Now().UnixNano())
	user, err := service.CreateUserWithPassword(context.Background(), username, username+"@example.com", "password123")
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Greater(t, user.ID, 0)
	assert.Equal(t, username, user.Username)
	assert.True(t, user.Email.Valid)
	assert.Equal(t, username+"@example.com", user.Email.String)
	assert.True(t, user.PasswordHash.Valid)
	assert.NotEqual(t, "password123", user.PasswordHash.String)
	assert.False(t, user.IsAdmin)
	assert.NotEmpty(t, user.CreatedAt)
}

func TestUserService_CreateUserWithPassword_DuplicateUsername_Integration(t *testing.T) {
	db := setupTestDBForUser(t)
	defer db.Close()

	service := newTestUserService(t, db)

	username := fmt.Sprintf("dupuser_%d", time.Now().UnixNano())
	_, err := service.CreateUserWithPassword(context.Background(), username, "", "password123")
	require.NoError(t, err)

	_, err = service.CreateUserWithPassword(context.Background(), username, "", "password456")
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrRecordExists)
}

func TestUserService_AuthenticateUser_Integration(t *testing.T) {
	db := setupTestDBForUser(t)
	defer db.Close()

	service := newTestUserService(t, db)
	ctx := context.Background()

	username := fmt.Sprintf("authuser_%d", time.Now().UnixNano())
	created, err := service.CreateUserWithPassword(ctx, username, "", "correct-horse")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := service.AuthenticateUser(ctx, username, "correct-horse")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, created.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		user, err := service.AuthenticateUser(ctx, username, "battery-staple")
		require.Error(t, err)
		assert.Nil(t, user)
	})

	t.Run("unknown user", func(t *testing.T) {
		user, err := service.AuthenticateUser(ctx, "nobody-here", "whatever")
		require.Error(t, err)
		assert.Nil(t, user)
	})
}

func TestUserService_GetUserByID_NotFound_Integration(t *testing.T) {
	db := setupTestDBForUser(t)
	defer db.Close()

	service := newTestUserService(t, db)

	user, err := service.GetUserByID(context.Background(), 999999)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserService_UpdateLastActive_Integration(t *testing.T) {
	db := setupTestDBForUser(t)
	defer db.Close()

	service := newTestUserService(t, db)
	ctx := context.Background()

	username := fmt.Sprintf("activeuser_%d", time.Now().UnixNano())
	user, err := service.CreateUserWithPassword(ctx, username, "", "password123")
	require.NoError(t, err)

	err = service.UpdateLastActive(ctx, user.ID)
	require.NoError(t, err)

	updated, err := service.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, updated.LastActive.Valid)

	err = service.UpdateLastActive(ctx, 999999)
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrRecordNotFound)
}

func TestUserService_EnsureAdminUserExists_Integration(t *testing.T) {
	db := setupTestDBForUser(t)
	defer db.Close()

	service := newTestUserService(t, db)
	ctx := context.Background()

	err := service.EnsureAdminUserExists(ctx, "admin", "admin-password")
	require.NoError(t, err)

	admin, err := service.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.IsVerified)

	isAdmin, err := service.IsAdmin(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// Second call is idempotent
	err = service.EnsureAdminUserExists(ctx, "admin", "admin-password")
	require.NoError(t, err)

	// Changed password is picked up
	err = service.EnsureAdminUserExists(ctx, "admin", "rotated-password")
	require.NoError(t, err)
	authed, err := service.AuthenticateUser(ctx, "admin", "rotated-password")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, authed.ID)
}

func TestUserService_EnsureAdminUserExists_MissingCredentials_Integration(t *testing.T) {
	db := setupTestDBForUser(t)
	defer db.Close()

	service := newTestUserService(t, db)

	err := service.EnsureAdminUserExists(context.Background(), "", "")
	require.Error(t, err)
}

func TestUserService_IsAdmin_UnknownUser_Integration(t *testing.T) {
	db := setupTestDBForUser(t)
	defer db.Close()

	service := newTestUserService(t, db)

	isAdmin, err := service.IsAdmin(context.Background(), 999999)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}
