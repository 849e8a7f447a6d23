package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/users-api/cmd/usersctl/ui"
	"github.com/redmonkez12/users-api/internal/account"
	"github.com/redmonkez12/users-api/internal/auth"
	"github.com/redmonkez12/users-api/internal/config"
	"github.com/redmonkez12/users-api/internal/database"
	"github.com/redmonkez12/users-api/internal/email"
	"github.com/redmonkez12/users-api/internal/logging"
	"github.com/redmonkez12/users-api/internal/user"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "usersctl",
		Short:        "Operate the users API database",
		Long:         "Administrative CLI for schema migrations and seeding users outside the HTTP API.",
		SilenceUsage: true,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage schema migrations",
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withDB(func(ctx context.Context, cfg *config.Config, db *bun.DB) error {
				if err := database.MigrateUp(ctx, db.DB, cfg.Database.Driver); err != nil {
					return err
				}
				return printVersion(ctx, cfg, db)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: withDB(func(ctx context.Context, cfg *config.Config, db *bun.DB) error {
				if err := database.MigrateDown(ctx, db.DB, cfg.Database.Driver); err != nil {
					return err
				}
				return printVersion(ctx, cfg, db)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show which migrations are applied",
			RunE: withDB(func(ctx context.Context, cfg *config.Config, db *bun.DB) error {
				return database.MigrationStatus(ctx, db.DB, cfg.Database.Driver)
			}),
		},
	)

	createUserCmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a user directly against the database",
		RunE:  runCreateUser,
	}

	// Flags for non-interactive mode (CI/scripting)
	createUserCmd.Flags().String("name", "", "Full name")
	createUserCmd.Flags().String("email", "", "Email address")
	createUserCmd.Flags().String("password", "", "Password (8-72 characters)")
	createUserCmd.Flags().String("dob", "", "Date of birth, YYYY-MM-DD (defaults to today)")
	createUserCmd.Flags().String("description", "", "Short description")

	rootCmd.AddCommand(migrateCmd, createUserCmd)
	return rootCmd
}

type dbFunc func(ctx context.Context, cfg *config.Config, db *bun.DB) error

// withDB loads configuration and opens the database without auto-migrating,
// so migrate commands stay in control of the schema.
func withDB(fn dbFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			ui.PrintError(err.Error())
			return err
		}
		cfg.Database.AutoMigrate = false

		ctx := cmd.Context()
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			ui.PrintError(err.Error())
			return err
		}
		defer db.Close()

		if err := fn(ctx, cfg, db); err != nil {
			ui.PrintError(err.Error())
			return err
		}
		return nil
	}
}

func printVersion(ctx context.Context, cfg *config.Config, db *bun.DB) error {
	version, err := database.Version(ctx, db.DB, cfg.Database.Driver)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Schema at version %d", version))
	return nil
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	emailAddr, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	dob, _ := cmd.Flags().GetString("dob")
	description, _ := cmd.Flags().GetString("description")

	req := account.NewUserRequest{
		Name:        name,
		Email:       emailAddr,
		Password:    password,
		Dob:         dob,
		Description: description,
	}

	// Interactive mode unless the required flags are all set
	if name == "" || emailAddr == "" || password == "" {
		fmt.Println()
		fmt.Println("  Create a user")
		fmt.Println()

		form, err := ui.RunUserForm(req)
		if err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
		req = *form
	}

	return withDB(func(ctx context.Context, cfg *config.Config, db *bun.DB) error {
		svc, err := newAccountService(cfg, db)
		if err != nil {
			return err
		}
		defer svc.Wait()

		resp, err := svc.Register(ctx, req)
		if err != nil {
			return err
		}

		ui.PrintSuccess(resp.Detail)
		return nil
	})(cmd, args)
}

func newAccountService(cfg *config.Config, db *bun.DB) (*account.Service, error) {
	hasher, err := auth.NewHasher(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	repo := user.NewRepository(db)
	return account.NewService(
		repo,
		hasher,
		auth.NewAuthenticator(repo, hasher),
		tokens,
		email.NewService(cfg.Email),
		logging.NewLogger(cfg.Server.IsDevelopment()),
	), nil
}
