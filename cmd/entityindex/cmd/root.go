// Package cmd provides the CLI commands for entityindex.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/entityindex/internal/version"
)

const (
	defaultConfigPath = "entityindex.yaml"
	defaultEnvFile    = ".env"
)

// globalOptions holds persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
}

// NewRootCmd creates the root command for the entityindex CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "entityindex",
		Short: "Full-text index over the entities of a relational database",
		Long: `entityindex keeps a bleve full-text index of configured entity types
and answers searches with entity references (type and primary key).

Entity types, their indexed fields and boosts are declared in a YAML file:

  database:
    driver: sqlite
    dsn: app.db
  entities:
    posts:
      fields:
        - title: {boost: 2}
        - body
      searchable_where: status = 'published'`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFile(opts.envFile, cmd.Flags().Changed("env-file"))
		},
	}

	cmd.SetVersionTemplate("entityindex version {{.Version}}\n")

	configDefault := defaultConfigPath
	if p := os.Getenv("ENTITYINDEX_CONFIG"); p != "" {
		configDefault = p
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", configDefault, "Path to the YAML configuration (env ENTITYINDEX_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnvFile, "Load environment variables from this file before reading the configuration")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newRebuildCmd(opts))
	cmd.AddCommand(newClearCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

// loadEnvFile loads path into the environment. A missing file is only an
// error when it was named explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}
