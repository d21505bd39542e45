// Package cmd implements the nimbusfs command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/config"
	"github.com/3leaps/nimbusfs/internal/observability"
)

// versionInfo is stamped by main at build time.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "none",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata reported by the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile              string
	verbose              bool
	flagConnectionString string
	flagProvider         string
	flagRegion           string
	flagTimeout          time.Duration
	flagLogFormat        string

	// appConfig is set by PersistentPreRunE for every subcommand.
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nimbusfs",
	Short: "Use an object storage bucket as a file store",
	Long: `nimbusfs reads, writes and lists files in an object storage bucket.

One bucket is addressed per invocation. Credentials, endpoint and bucket come
from a connection string:

  AccessKey=...;SecretKey=...;EndPoint=https://s3.example.com;Bucket=media

Providers: s3 (default), minio, swift and file (EndPoint is a directory).

Configuration is read from nimbusfs.yaml, a .env file, NIMBUSFS_* environment
variables and the flags below, in increasing order of precedence.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./nimbusfs.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&flagConnectionString, "connection-string", "c", "", "storage connection string")
	pf.StringVar(&flagProvider, "provider", "", "storage provider: s3, minio, swift, file")
	pf.StringVar(&flagRegion, "region", "", "storage region")
	pf.DurationVar(&flagTimeout, "timeout", 0, "overall command timeout (0 disables)")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: console or json")
}

// initApp configures logging and loads configuration before any command runs.
func initApp(cmd *cobra.Command, _ []string) error {
	observability.InitCLILogger(config.AppName, verbose)

	config.SetConfigFile(cfgFile)
	cfg, err := config.Load(cmd.Context(), flagOverrides(cmd))
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	logCfg := observability.LoggerConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if verbose {
		logCfg.Level = "debug"
	}
	observability.ConfigureCLILogger(config.AppName, logCfg)

	appConfig = cfg
	return nil
}

// flagOverrides maps explicitly set persistent flags onto config keys.
func flagOverrides(cmd *cobra.Command) map[string]any {
	flags := cmd.Flags()
	storage := map[string]any{}
	if flags.Changed("connection-string") {
		storage["connection_string"] = flagConnectionString
	}
	if flags.Changed("provider") {
		storage["provider"] = flagProvider
	}
	if flags.Changed("region") {
		storage["region"] = flagRegion
	}
	if flags.Changed("timeout") {
		storage["timeout"] = flagTimeout
	}

	overrides := map[string]any{}
	if len(storage) > 0 {
		overrides["storage"] = storage
	}
	if flags.Changed("log-format") {
		overrides["logging"] = map[string]any{"format": flagLogFormat}
	}
	return overrides
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "Error:", err)

	if ctx.Err() != nil {
		return foundry.ExitSignalInt
	}
	return exitCode(err)
}

// cliError carries the process exit code for a failed command.
type cliError struct {
	code    int
	message string
	err     error
}

func (e *cliError) Error() string {
	if e.err == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.err)
}

func (e *cliError) Unwrap() error {
	return e.err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &cliError{code: code, message: message, err: err}
}

// exitCode returns the exit code attached by exitError, or 1 for any other
// error such as a flag parse failure.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}
