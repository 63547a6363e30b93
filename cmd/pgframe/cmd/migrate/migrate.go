// Package migrate provides the pgframe migrate CLI subcommands.
package migrate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ashgate/pgframe/internal/migrate"

	"github.com/spf13/cobra"
)

// NewCommand creates the migrate command and its up/down subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		Long: `Runs the numbered <version>_<name>.(up|down).sql migration files in
the configured migrations directory against rwf_migrations, bootstrapping
rwf_migrations and rwf_jobs on first use.`,
	}

	cmd.AddCommand(newUpCommand(), newDownCommand())
	return cmd
}

// dial opens a plain, unpooled connection for migration work: migrations
// run once at deploy time and have no need for the steady-state checkout
// pool applications use for request traffic.
func dial(ctx context.Context, dsn string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return conn, nil
}

func loadAndBootstrap(ctx context.Context, conn *pgx.Conn, dir string) ([]migrate.Migration, error) {
	migrations, err := migrate.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := migrate.Bootstrap(ctx, conn, migrations); err != nil {
		return nil, err
	}
	return migrations, nil
}
