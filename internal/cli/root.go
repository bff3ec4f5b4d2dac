// Package cli implements the chainlink command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/internal/paths"
	"github.com/mesh-intelligence/chainlink/internal/sqlite"
	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app is the state one command invocation shares: flags, loaded config and
// the store, opened on first use.
type app struct {
	flags  rootFlags
	config *viper.Viper
	store  *sqlite.Store
}

// NewRootCmd creates the top-level "chainlink" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chainlink",
		Short: "A local issue tracker for working sessions",
		Long: "Chainlink tracks issues, dependencies, sessions and milestones\n" +
			"in a SQLite database kept next to your project.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: nearest .chainlink)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: nearest .chainlink)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newCreateCmd(a),
		newSubissueCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newUpdateCmd(a),
		newCloseCmd(a),
		newReopenCmd(a),
		newDeleteCmd(a),
		newCommentCmd(a),
		newLabelCmd(a),
		newUnlabelCmd(a),
		newBlockCmd(a),
		newUnblockCmd(a),
		newBlockedCmd(a),
		newReadyCmd(a),
		newNextCmd(a),
		newTreeCmd(a),
		newRelateCmd(a),
		newUnrelateCmd(a),
		newRelatedCmd(a),
		newArchiveCmd(a),
		newMilestoneCmd(a),
		newSessionCmd(a),
		newStartCmd(a),
		newStopCmd(a),
		newTimerCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit code, printing
// any error to stderr. The store is closed even when the command fails.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if cerr := a.close(); err == nil && cerr != nil {
		err = systemError(cerr)
	}
	logging.Close()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitCode(err)
}

// setup resolves directories, loads config.yaml and starts logging. The
// store itself is opened lazily by commands that need it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return systemError(fmt.Errorf("resolving config directory: %w", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return systemError(err)
	}
	a.config = cfg

	level := cfg.GetString(cfgKeyLogLevel)
	if a.flags.verbose {
		level = "debug"
	}
	if err := logging.Initialize(level, cfg.GetString(cfgKeyLogFile)); err != nil {
		return userError(err)
	}
	return nil
}

// dataDir resolves the data directory: --data-dir > config.yaml >
// CHAINLINK_DATA_DIR > nearest .chainlink.
func (a *app) dataDir() (string, error) {
	var configured string
	if a.config != nil {
		configured = a.config.GetString(cfgKeyDataDir)
	}
	return paths.ResolveDataDir(a.flags.dataDir, configured)
}

// open returns the store, opening it on first call. The data directory is
// created if needed.
func (a *app) open() (*sqlite.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	dir, err := a.dataDir()
	if err != nil {
		return nil, systemError(fmt.Errorf("resolving data directory: %w", err))
	}
	backend := types.BackendSQLite
	if a.config != nil {
		backend = a.config.GetString(cfgKeyBackend)
	}
	store, err := sqlite.OpenConfig(types.Config{Backend: backend, DataDir: dir})
	if err != nil {
		if errors.Is(err, types.ErrBackendUnknown) || errors.Is(err, types.ErrBackendEmpty) {
			return nil, userError(fmt.Errorf("backend %q: %w", backend, err))
		}
		return nil, systemError(err)
	}
	a.store = store
	return store, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// defaultPriority is the priority new issues get when --priority is not
// given.
func (a *app) defaultPriority() string {
	if a.config == nil {
		return types.PriorityMedium
	}
	return a.config.GetString(cfgKeyDefaultPriority)
}
