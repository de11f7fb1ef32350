package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/isdelr/devsec-blog-be/internal/auth"
	"github.com/isdelr/devsec-blog-be/internal/config"
	"github.com/isdelr/devsec-blog-be/internal/database"
	"github.com/isdelr/devsec-blog-be/internal/logger"
	"github.com/isdelr/devsec-blog-be/internal/services"
	"github.com/isdelr/devsec-blog-be/internal/validation"
	"github.com/rs/zerolog/log"
)

var rootCmd = &cobra.Command{
	Use:           "blogctl",
	Short:         "blogctl manages the blog backend's database",
	Long:          "blogctl runs schema migrations and provisions admin accounts out of band.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  migrateRunE,
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an account with the ADMIN role",
	Long: "Create an account with the ADMIN role. Reserved usernames such as 'admin' " +
		"are allowed here, registration through the API never allows them.",
	RunE: createAdminRunE,
}

var (
	databasePath string
	admin        services.RegisterInput
	premium      bool
)

func openDatabase() (*sql.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.LogLevel, true)

	path := cfg.DatabasePath
	if databasePath != "" {
		path = databasePath
	}
	db, err := database.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return db, cfg, nil
}

func migrateRunE(cmd *cobra.Command, args []string) error {
	db, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Msg("Database schema is up to date")
	return nil
}

func createAdminRunE(cmd *cobra.Command, args []string) error {
	db, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	events := services.NewEventService(db, nil)
	users := services.NewUserService(db, auth.NewHasher(auth.DefaultHashCost),
		auth.NewTokenManager(cfg.JWTSecret), validation.New(), events)

	in := admin
	in.ConfirmPassword = in.Password
	user, err := users.CreateAdmin(context.Background(), in, premium)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				_, _ = fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Field, f.Message)
			}
		}
		return err
	}

	log.Info().Str("id", user.ID).Str("username", user.Username).Bool("premium", user.IsPremium).Msg("Admin account created")
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&databasePath, "database", "", "SQLite database path (defaults to DATABASE_PATH)")

	flags := createAdminCmd.Flags()
	flags.StringVar(&admin.Email, "email", "", "email address")
	flags.StringVar(&admin.Username, "username", "", "username")
	flags.StringVar(&admin.Password, "password", "", "password")
	flags.StringVar(&admin.FirstName, "first-name", "", "first name")
	flags.StringVar(&admin.LastName, "last-name", "", "last name")
	flags.BoolVar(&premium, "premium", false, "grant premium status")
	for _, name := range []string{"email", "username", "password", "first-name", "last-name"} {
		_ = createAdminCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(migrateCmd, createAdminCmd)
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
