// Package cli implements the concepts command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/internal/paths"
	"github.com/mesh-intelligence/concepts/internal/state"
	"github.com/mesh-intelligence/concepts/pkg/concepts"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// app holds global flag values and the configuration loaded before every
// subcommand runs.
type app struct {
	configDirFlag string
	dataDirFlag   string
	output        string
	logLevel      string
	logJSON       bool

	configDir string
	v         *viper.Viper
}

// NewRootCmd creates the top-level "concepts" command with global flags and
// every subcommand registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "concepts",
		Short:   "A schema-less concept store shared between owners",
		Long:    "concepts keeps typed, weighted concepts for an owner and answers\nconcept queries from other owners over HTTP.",
		Version: concepts.Version,
		// Errors are printed once by Execute, with hints.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDirFlag, "config-dir", "", "configuration directory (default: per-user config dir)")
	pf.StringVar(&a.dataDirFlag, "data-dir", "", "data directory (default: $(CWD)/.concepts-db)")
	pf.StringVarP(&a.output, "output", "o", outputJSON, "output format: json, yaml or table")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default: warn)")
	pf.BoolVar(&a.logJSON, "log-json", false, "emit logs as JSON")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.Mark(err, types.ErrInvalidArgument)
	})

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newCreateCmd(a),
		newGetCmd(a),
		newFindCmd(a),
		newListCmd(a),
		newUpdateCmd(a),
		newSetPropertyCmd(a),
		newRemoveCmd(a),
		newHistoryCmd(a),
		newTrackCmd(a),
		newOwnersCmd(a),
		newResolveCmd(a),
		newQueryCmd(a),
		newRegistryCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup resolves the config directory, loads config.yaml and initialises
// logging.
func (a *app) setup(cmd *cobra.Command) error {
	if err := validateOutput(a.output); err != nil {
		return err
	}
	dir, err := paths.ResolveConfigDir(a.configDirFlag)
	if err != nil {
		return errors.Wrap(err, "resolve config dir")
	}
	v, err := loadConfig(dir)
	if err != nil {
		return err
	}
	a.configDir = dir
	a.v = v

	level := a.logLevel
	if level == "" {
		level = v.GetString(cfgKeyLogLevel)
	}
	if err := logger.Initialize(a.logJSON || v.GetBool(cfgKeyLogJSON), level); err != nil {
		return errors.Mark(errors.Wrapf(err, "log level %q", level), types.ErrInvalidArgument)
	}
	return nil
}

func (a *app) state() *state.Manager {
	return state.NewManager(paths.StateFile(a.configDir))
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	code := run(ctx, NewRootCmd(), os.Stderr)
	logger.Sync()
	cancel()
	os.Exit(code)
}

// run executes root and reports any error to stderr, returning the exit
// code.
func run(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	printError(stderr, err)
	return exitCode(err)
}

// printError writes the error and any hints attached to it.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

// exitCode is 1 for errors the user can fix and 2 for everything else.
func exitCode(err error) int {
	if errors.IsAny(err,
		types.ErrInvalidArgument,
		types.ErrInvalidID,
		types.ErrNotFound,
		types.ErrNotInitialized,
		types.ErrUnsupported,
		types.ErrBackendEmpty,
		types.ErrBackendUnknown,
		types.ErrDataDirEmpty,
		types.ErrRedisAddrEmpty,
		types.ErrRemoteURLEmpty,
	) {
		return exitUserError
	}
	return exitSysError
}

// exactArgs is cobra.ExactArgs with the error marked as a user error.
func exactArgs(n int) cobra.PositionalArgs {
	return userArgs(cobra.ExactArgs(n))
}

func rangeArgs(min, max int) cobra.PositionalArgs {
	return userArgs(cobra.RangeArgs(min, max))
}

func userArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return errors.Mark(err, types.ErrInvalidArgument)
		}
		return nil
	}
}
