package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/raaihank/anonimizador/internal/config"
	"github.com/raaihank/anonimizador/internal/logger"
)

// Build information, set with -ldflags
var (
	Version = "0.1.0"
	Commit  = "dev"
	Date    = "unknown"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitBlankInput   = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

// app carries the streams and the exit code set by command handlers
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	logLevel   string
	exitCode   int
}

// Run executes the command line and returns the process exit code
func Run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut}

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return a.exitCode
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "anonimizar",
		Short: "Replace DNI numbers, mobile phones and emails with placeholders",
		Long: "anonimizar replaces Spanish DNI numbers, mobile phone numbers and email addresses\n" +
			"with [DNI], [TELEFONO] and [EMAIL] and saves {original, anonimizado, fecha} as JSON.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	root.AddCommand(a.newTextCmd())
	root.AddCommand(a.newBatchCmd())
	root.AddCommand(a.newVersionCmd())
	return root
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print anonimizar version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "anonimizar version %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// setup loads the configuration and builds the logger shared by the commands
func (a *app) setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		logConfig.File = &logger.FileConfig{
			Enabled: true,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(logConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log.WithComponent("cli"), nil
}

// fail reports a runtime error and sets the exit code
func (a *app) fail(code int, err error) error {
	fmt.Fprintf(a.errOut, "Error: %v\n", err)
	a.exitCode = code
	return nil
}
