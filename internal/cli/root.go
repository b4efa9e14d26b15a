// Package cli implements the storagereport command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/internal/logging"
	"github.com/mesh-intelligence/storagereport/internal/paths"
	"github.com/mesh-intelligence/storagereport/pkg/types"
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
	verbose   bool
	jsonMode  bool
}

// app carries what PersistentPreRunE resolves for the subcommands.
type app struct {
	flags     rootFlags
	configDir string
	dataDir   string
	cfg       types.Config
	logger    *zap.Logger

	// newLogger is replaced in tests.
	newLogger func(verbose bool) (*zap.Logger, error)
}

// NewRootCmd creates the top-level "storagereport" command with global
// flags and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{newLogger: logging.New})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "storagereport",
		Short: "Daily S3 storage usage reports",
		Long: "storagereport snapshots the S3 buckets of every collaborator, compares\n" +
			"the snapshot with the previous one and mails the difference. It can\n" +
			"also list directory trees to confirm that a copy is identical.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/storagereport)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.storagereport)")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log at debug level")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newDailyCmd(a))
	root.AddCommand(newSnapshotCmd(a))
	root.AddCommand(newReportCmd(a))
	root.AddCommand(newScheduleCmd(a))
	root.AddCommand(newJobspecCmd(a))
	root.AddCommand(newVerifyCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// setup resolves directories, loads config.yaml and builds the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	logger, err := a.newLogger(a.flags.verbose)
	if err != nil {
		return sysError(err)
	}
	a.logger = logger

	if cmd.Name() == "version" {
		return nil
	}

	a.configDir, err = paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}

	v, err := loadConfig(a.configDir)
	if err != nil {
		return sysError(err)
	}
	a.cfg, err = decodeConfig(v)
	if err != nil {
		return userError(err)
	}

	a.dataDir, err = paths.ResolveDataDir(a.flags.dataDir, configDataDir(v))
	if err != nil {
		return sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	a.cfg.DataDir = a.dataDir

	a.logger.Debug("configuration loaded",
		zap.String("config_dir", a.configDir),
		zap.String("data_dir", a.dataDir))
	return nil
}

// exitError attaches a process exit code to an error.
type exitError struct {
	code int
	err  error
}

// Error returns the wrapped error's message.
func (e *exitError) Error() string { return e.err.Error() }

// Unwrap returns the wrapped error.
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitUserError, err: err}
}

func sysError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitSysError, err: err}
}

// exitCode maps an error to a process exit code. Errors without a code,
// such as cobra's argument errors, are user errors.
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

// openOutput returns stdout when path is empty, otherwise a created file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
