package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .chainlink directory, config.yaml and database",
		Long: "Init creates the configuration and data directories, writes a default\n" +
			"config.yaml if none exists and creates the issue database. Running it\n" +
			"again is safe.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return systemError(err)
			}
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				return systemError(fmt.Errorf("create config directory: %w", err))
			}
			written, err := writeConfigIfMissing(configDir, a.flags.dataDir)
			if err != nil {
				return systemError(err)
			}

			store, err := a.open()
			if err != nil {
				return err
			}
			logging.Logger.Info("initialized", "config_dir", configDir, "database", store.Path())

			out := cmd.OutOrStdout()
			if written {
				fmt.Fprintf(out, "Wrote %s\n", filepath.Join(configDir, configFileExt))
			}
			fmt.Fprintf(out, "Database ready at %s\n", store.Path())
			return nil
		},
	}
}
