package migrate

import (
	"fmt"

	"github.com/ashgate/pgframe/internal/config"
	"github.com/ashgate/pgframe/internal/logger"
	"github.com/ashgate/pgframe/internal/migrate"

	"github.com/spf13/cobra"
)

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every unapplied migration, in ascending version order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx := cmd.Context()
			conn, err := dial(ctx, cfg.DSN())
			if err != nil {
				return err
			}
			defer conn.Close(ctx)

			migrations, err := loadAndBootstrap(ctx, conn, cfg.Worker.MigrationsDir)
			if err != nil {
				return err
			}

			if err := migrate.Up(ctx, conn, migrations); err != nil {
				logger.AuditLoggerFrom(ctx).LogMigration(ctx, false, len(migrations), logger.AuditOutcomeFailure)
				return err
			}
			logger.AuditLoggerFrom(ctx).LogMigration(ctx, false, len(migrations), logger.AuditOutcomeSuccess)

			fmt.Fprintf(cmd.OutOrStdout(), "all %d migration(s) applied\n", len(migrations))
			return nil
		},
	}
}
