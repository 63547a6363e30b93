package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ashgate/pgframe/cmd/pgframe/cmd/configcmd"
	"github.com/ashgate/pgframe/cmd/pgframe/cmd/migrate"
	"github.com/ashgate/pgframe/cmd/pgframe/cmd/version"
	"github.com/ashgate/pgframe/internal/config"
	"github.com/ashgate/pgframe/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string

	cfg *config.Config

	log *logger.Logger

	auditLog *logger.AuditLogger

	cmdStartTime time.Time

	cmdCtx context.Context
)

var rootCmd = &cobra.Command{
	Use:              "pgframe",
	Short:            "Operational tooling for the pgframe database core",
	Long:             "pgframe manages migrations and inspects configuration for applications built on the pgframe query builder, pool, and job system.",
	TraverseChildren: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfg.Log.AuditPath != "" {
			auditLog, err = logger.NewAuditLogger(cfg.Log.AuditPath, cfg.Log.AuditMaxAgeDays)
			if err != nil {
				return fmt.Errorf("failed to initialize audit logger: %w", err)
			}
		} else {
			auditLog = nil
		}

		cc := logger.NewCommandContext(cmd, args)
		cmdCtx = logger.WithCommandContext(context.Background(), cc)
		cmdCtx = logger.WithLogger(cmdCtx, log)
		cmdCtx = logger.WithAuditLogger(cmdCtx, auditLog)
		cmdStartTime = time.Now()

		cmd.SetContext(cmdCtx)

		log.Debug("command started",
			"command", cc.Command,
			"args", cc.Args,
			"request_id", cc.RequestID,
			"user", cc.User,
		)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if log == nil {
			return nil
		}
		duration := time.Since(cmdStartTime)
		cc := logger.CommandContextFrom(cmdCtx)

		log.Debug("command completed",
			"command", cc.Command,
			"duration_ms", duration.Milliseconds(),
			"request_id", cc.RequestID,
		)

		if auditLog != nil {
			auditLog.LogCommand(cmdCtx, cc.Command, logger.AuditOutcomeSuccess, map[string]any{
				"duration_ms": duration.Milliseconds(),
			})
			auditLog.Close()
		}

		return log.Close()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. Called once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default search: /etc/pgframe, ~/.config/pgframe, ./config.yaml)")

	rootCmd.AddCommand(migrate.NewCommand())
	rootCmd.AddCommand(configcmd.NewCommand())
	rootCmd.AddCommand(version.NewCommand())
}

// Config returns the loaded configuration, for use by subcommands.
func Config() *config.Config { return cfg }

// Log returns the process logger, for use by subcommands.
func Log() *logger.Logger { return log }

// Context returns the command context carrying the request ID and logger.
func Context() context.Context { return cmdCtx }
