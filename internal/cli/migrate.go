package cli

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose"
	"github.com/spf13/cobra"

	"github.com/shaiso/housekeeper/internal/config"
	"github.com/shaiso/housekeeper/internal/repo"
)

// migrationFunc — сигнатура goose.Up, goose.Down, goose.Status.
type migrationFunc func(db *sql.DB, dir string) error

// NewMigrateCmd создаёт группу команд миграций. Подключение берётся из DB_URL.
func NewMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "migrations", "Directory with goose SQL migrations")

	cmd.AddCommand(
		newMigrateStepCmd("up", "Apply all pending migrations", &dir, goose.Up),
		newMigrateStepCmd("down", "Roll back the last migration", &dir, goose.Down),
		newMigrateStepCmd("status", "Show migration status", &dir, goose.Status),
	)

	return cmd
}

func newMigrateStepCmd(use, short string, dir *string, fn migrationFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			pool, err := repo.NewPool(contextOrBackground(cmd), cfg.DatabaseURL, cfg.DatabaseMaxConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			db := stdlib.OpenDBFromPool(pool)
			defer db.Close()

			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}
			if err := fn(db, *dir); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			return nil
		},
	}
}
