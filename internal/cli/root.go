// Package cli implements the tablemeta command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablemeta/internal/paths"
	"github.com/mesh-intelligence/tablemeta/pkg/meta"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	logLevel  string
}

// app is the state shared by one command tree.
type app struct {
	flags     rootFlags
	configDir string
	cfg       types.Config
	logger    *zap.Logger
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// exitCode maps an error returned by a command to a process exit code.
// Errors that were not classified count as user errors; cobra reports flag
// and argument problems that way.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// NewRootCmd creates the top-level "tablemeta" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "tablemeta",
		Short: "Inspect and edit metadata embedded in parquet files",
		Long: "tablemeta reads and writes the key/value metadata that travels with\n" +
			"tables, plans and columns and is stored in parquet file headers.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/tablemeta)")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newInspectCmd(a))
	root.AddCommand(newSetCmd(a))
	root.AddCommand(newDiscoverCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tablemeta:", err)
		os.Exit(exitCode(err))
	}
}

// setup resolves the config directory, loads config.yaml and applies it to
// the metadata runtime.
func (a *app) setup(cmd *cobra.Command) error {
	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	a.configDir = dir

	cfg, err := loadConfig(dir, a.flags.logLevel)
	if err != nil {
		return userError(err)
	}
	a.cfg = cfg

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.GetLogLevel())
	if err != nil {
		return userError(err)
	}
	a.logger = logger

	err = meta.Configure(cfg, meta.WithLogger(logger.Named("meta")))
	if errors.Is(err, meta.ErrStarted) {
		// The runtime keeps its first logger for the life of the process.
		err = meta.Configure(cfg)
	}
	if err != nil {
		return userError(err)
	}
	a.logger.Debug("configured",
		zap.String("config_dir", dir),
		zap.Bool("auto_preserve", meta.AutoPreserveEnabled()),
		zap.String("merge_priority", string(meta.CurrentMergePriority())))
	return nil
}
