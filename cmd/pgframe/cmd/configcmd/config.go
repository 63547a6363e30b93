// Package configcmd provides the pgframe config CLI subcommands.
package configcmd

import (
	"fmt"

	"github.com/ashgate/pgframe/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewCommand creates the config command and its subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newShowCommand(), newPathCommand())
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration currently in effect, with secrets resolved",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file that would be loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
				fmt.Fprintln(cmd.OutOrStdout(), cfgFile)
				return nil
			}
			path := config.ConfigFileUsed(config.AppName)
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no config file found; using defaults and environment")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
