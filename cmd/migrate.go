package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/kollabhq/kollab/migrations"
)

// newMigrateCmd creates the command applying embedded schema migrations.
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the embedded schema migrations against DATABASE_URL.`,
	}

	for _, action := range []string{"up", "down", "status"} {
		cmd.AddCommand(newMigrateActionCmd(action))
	}
	return cmd
}

func newMigrateActionCmd(action string) *cobra.Command {
	short := map[string]string{
		"up":     "Apply all pending migrations",
		"down":   "Roll back the most recent migration",
		"status": "Print the migration status",
	}[action]

	return &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, action)
		},
	}
}

func runMigrate(cmd *cobra.Command, action string) error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("missing required configuration DATABASE_URL")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	ctx := cmd.Context()
	switch action {
	case "up":
		return goose.UpContext(ctx, db, ".")
	case "down":
		return goose.DownContext(ctx, db, ".")
	case "status":
		return goose.StatusContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}
}
