package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"studytrack/internal/observability"
	"studytrack/internal/services"
	contextutils "studytrack/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(userService *services.UserService, logger *observability.Logger, databaseURL, adminUsername, adminPassword string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands for the studytrack backend.

Available commands:
  list           - List all users
  create         - Create a new user
  reset-password - Reset password for a specific user
  ensure-admin   - Create or update the configured admin user`,
	}

	// Add subcommands
	userCmd.AddCommand(listCmd(userService, logger, databaseURL))
	userCmd.AddCommand(createCmd(userService, logger))
	userCmd.AddCommand(resetPasswordCmd(userService, logger))
	userCmd.AddCommand(ensureAdminCmd(userService, logger, adminUsername, adminPassword))

	return userCmd
}

// listCmd returns the list command
func listCmd(userService *services.UserService, logger *observability.Logger, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Long:  `List all users in the database with their basic information.`,
		RunE:  runListUsers(userService, logger, databaseURL),
	}
}

// createCmd returns the create command
func createCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "create [username]",
		Short: "Create a new user",
		Long:  `Create a new user with the given username. You will be prompted for a password.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runCreateUser(userService, logger, &email),
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address for the new user (optional)")

	return cmd
}

// resetPasswordCmd returns the reset-password command
func resetPasswordCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password [username]",
		Short: "Reset password for a user",
		Long:  `Reset the password for a specific user. If username is not provided, you will be prompted for it.`,
		RunE:  runResetPassword(userService, logger),
	}
}

// ensureAdminCmd returns the ensure-admin command
func ensureAdminCmd(userService *services.UserService, logger *observability.Logger, adminUsername, adminPassword string) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-admin",
		Short: "Create or update the configured admin user",
		Long:  `Ensure the admin user from the server configuration exists, creating it or syncing its password as needed.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			if err := userService.EnsureAdminUserExists(ctx, adminUsername, adminPassword); err != nil {
				logger.Error(ctx, "Failed to ensure admin user", err, map[string]interface{}{"username": adminUsername})
				return contextutils.WrapError(err, "failed to ensure admin user")
			}

			fmt.Printf("Admin user '%s' is present and up to date\n", adminUsername)
			return nil
		},
	}
}

// runListUsers returns a function that lists all users
func runListUsers(userService *services.UserService, logger *observability.Logger, databaseURL string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Show diagnostic information
		logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{"config_file": os.Getenv("STUDYTRACK_CONFIG_FILE"), "database_url": maskDatabaseURL(databaseURL)})

		logger.Info(ctx, "Listing all users", map[string]interface{}{})

		users, err := userService.GetAllUsers(ctx)
		if err != nil {
			logger.Error(ctx, "Failed to get users", err, map[string]interface{}{})
			return contextutils.WrapError(err, "failed to get users")
		}

		if len(users) == 0 {
			logger.Info(ctx, "No users found in the database", nil)
			return nil
		}

		// Print header to stdout (user-facing table)
		fmt.Printf("%-5s %-20s %-30s %-10s %-10s %-12s %-10s\n", "ID", "Username", "Email", "Verified", "Admin", "Last Active", "Created")

		// Print each user
		for _, user := range users {
			email := "N/A"
			if user.Email.Valid {
				email = user.Email.String
			}

			verified := "No"
			if user.IsVerified {
				verified = "Yes"
			}

			admin := "No"
			if user.IsAdmin {
				admin = "Yes"
			}

			lastActive := "Never"
			if user.LastActive.Valid {
				lastActive = user.LastActive.Time.Format("2006-01-02")
			}

			fmt.Printf("%-5d %-20s %-30s %-10s %-10s %-12s %-10s\n",
				user.ID,
				user.Username,
				email,
				verified,
				admin,
				lastActive,
				user.CreatedAt.Format("2006-01-02"),
			)
		}

		logger.Info(ctx, "Listed users", map[string]interface{}{"total": len(users)})
		return nil
	}
}

// runCreateUser returns a function that creates a new user
func runCreateUser(userService *services.UserService, logger *observability.Logger, email *string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		username := args[0]
		if username == "" {
			return contextutils.ErrorWithContextf("username is required")
		}

		password, err := promptPassword("Enter password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return contextutils.ErrorWithContextf("passwords do not match")
		}

		logger.Info(ctx, "Creating user", map[string]interface{}{"username": username})

		user, err := userService.CreateUserWithPassword(ctx, username, *email, password)
		if err != nil {
			logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create user '%s': %v", username, err)
		}

		fmt.Printf("User '%s' created (ID: %d)\n", user.Username, user.ID)
		logger.Info(ctx, "User created", map[string]interface{}{"username": user.Username, "user_id": user.ID})
		return nil
	}
}

// runResetPassword returns a function that resets a user's password
func runResetPassword(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var username string

		// Get username from args or prompt
		if len(args) > 0 {
			username = args[0]
		} else {
			fmt.Print("Enter username: ")
			if _, err := fmt.Scanln(&username); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read username: %v", err)
			}
		}

		if username == "" {
			return contextutils.ErrorWithContextf("username is required")
		}

		newPassword, err := promptPassword("Enter new password: ")
		if err != nil {
			return err
		}

		if newPassword == "" {
			return contextutils.ErrorWithContextf("password cannot be empty")
		}

		confirmPassword, err := promptPassword("Confirm new password: ")
		if err != nil {
			return err
		}

		if newPassword != confirmPassword {
			return contextutils.ErrorWithContextf("passwords do not match")
		}

		logger.Info(ctx, "Resetting password for user", map[string]interface{}{
			"username": username,
		})

		// Get user by username
		user, err := userService.GetUserByUsername(ctx, username)
		if err != nil {
			logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get user '%s': %v", username, err)
		}

		if user == nil {
			logger.Error(ctx, "User not found", nil, map[string]interface{}{"username": username})
			return contextutils.ErrorWithContextf("user '%s' not found", username)
		}

		// Update the password
		err = userService.UpdateUserPassword(ctx, user.ID, newPassword)
		if err != nil {
			logger.Error(ctx, "Failed to update password", err, map[string]interface{}{
				"username": username,
				"user_id":  user.ID,
			})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to update password for user '%s': %v", username, err)
		}

		fmt.Printf("Password successfully reset for user '%s' (ID: %d)\n", username, user.ID)
		logger.Info(ctx, "Password reset successful", map[string]interface{}{
			"username": username,
			"user_id":  user.ID,
		})

		return nil
	}
}

// promptPassword reads a password from the terminal without echoing it
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
	}
	return string(passwordBytes), nil
}
