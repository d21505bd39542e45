package cmd

import (
	"context"
	"errors"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/config"
	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/connstr"
	"github.com/3leaps/nimbusfs/pkg/storage"
)

var (
	errNoConnectionString = errors.New("set --connection-string, NIMBUSFS_CONNECTION_STRING or storage.connection_string")

	// errOperationFailed stands in for a storage failure that was logged
	// rather than returned.
	errOperationFailed = errors.New("operation failed, see log for details")
)

// commandContext applies storage.timeout to the command context.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if appConfig != nil && appConfig.Storage.Timeout > 0 {
		return context.WithTimeout(ctx, appConfig.Storage.Timeout)
	}
	return context.WithCancel(ctx)
}

// openStorage opens the configured bucket. The caller closes it.
func openStorage(ctx context.Context) (*storage.FileStorage, error) {
	cfg := appConfig
	if cfg == nil {
		cfg = config.GetConfig()
	}
	if cfg == nil || cfg.Storage.ConnectionString == "" {
		return nil, exitError(foundry.ExitInvalidArgument, "No connection string configured", errNoConnectionString)
	}

	conn, err := connstr.ParseStorage(cfg.Storage.ConnectionString)
	if err != nil {
		observability.CLILogger.Error("Invalid connection string", zap.Error(err))
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid connection string", err)
	}
	observability.CLILogger.Debug("Opening storage",
		zap.String("provider", cfg.Storage.Provider),
		zap.String("connection", conn.Redacted()))

	fs, err := storage.Open(ctx, storage.Config{
		ConnectionString: cfg.Storage.ConnectionString,
		Provider:         cfg.Storage.Provider,
		Region:           cfg.Storage.Region,
		ForcePathStyle:   cfg.Storage.ForcePathStyle,
		UseSSL:           cfg.Storage.UseSSL,
		MaxKeys:          cfg.Storage.MaxKeys,
	},
		storage.WithLogger(observability.CLILogger),
		storage.WithListRateLimit(cfg.Listing.RateLimit),
		storage.WithBufferMaxMemory(cfg.Upload.BufferMaxMemoryBytes),
	)
	if err != nil {
		observability.CLILogger.Error("Failed to open storage", zap.Error(err))
		if errors.Is(err, storage.ErrInvalidArgument) {
			return nil, exitError(foundry.ExitInvalidArgument, "Invalid storage configuration", err)
		}
		return nil, exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	return fs, nil
}

// closeStorage logs instead of failing the command on a close error.
func closeStorage(fs *storage.FileStorage) {
	if err := fs.Close(); err != nil {
		observability.CLILogger.Warn("Failed to close storage", zap.Error(err))
	}
}

// failure maps a storage error to an exit error, preferring the signal
// code when the command context was cancelled.
func failure(ctx context.Context, message string, err error) error {
	var ce *cliError
	if errors.As(err, &ce) {
		return err
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		if errors.Is(err, context.DeadlineExceeded) {
			return exitError(foundry.ExitExternalServiceUnavailable, message+": timed out", err)
		}
		return exitError(foundry.ExitSignalInt, message+": cancelled", err)
	}
	if errors.Is(err, storage.ErrInvalidArgument) {
		return exitError(foundry.ExitInvalidArgument, message, err)
	}
	return exitError(foundry.ExitExternalServiceUnavailable, message, err)
}
