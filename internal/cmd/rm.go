package cmd

import (
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
)

var rmCmd = &cobra.Command{
	Use:   "rm [path]",
	Short: "Delete a file or every file matching a pattern",
	Long: `Delete one file, or with --pattern every file matching a search pattern
in a single batch request. --all deletes every file in the bucket.

Examples:
  nimbusfs rm reports/q1.csv
  nimbusfs rm --pattern 'tmp/*.part'
  nimbusfs rm --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRm,
}

var (
	rmPattern string
	rmAll     bool
)

func init() {
	rootCmd.AddCommand(rmCmd)

	rmCmd.Flags().StringVar(&rmPattern, "pattern", "", "delete every file matching this search pattern")
	rmCmd.Flags().BoolVar(&rmAll, "all", false, "delete every file in the bucket")
}

func runRm(cmd *cobra.Command, args []string) error {
	modes := 0
	if len(args) == 1 {
		modes++
	}
	if rmPattern != "" {
		modes++
	}
	if rmAll {
		modes++
	}
	if modes != 1 {
		return exitError(foundry.ExitInvalidArgument, "Invalid arguments",
			errors.New("give exactly one of a path, --pattern or --all"))
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	fs, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(fs)

	if len(args) == 1 {
		ok, err := fs.DeleteFile(ctx, args[0])
		if err != nil {
			return failure(ctx, "Failed to delete file", err)
		}
		if !ok {
			return exitError(foundry.ExitExternalServiceUnavailable, "Failed to delete "+args[0], errOperationFailed)
		}
		observability.CLILogger.Info("Deleted file", zap.String("path", args[0]))
		return nil
	}

	n, err := fs.DeleteFiles(ctx, rmPattern)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d file(s)\n", n)
	if err != nil {
		observability.CLILogger.Error("Failed to delete files",
			zap.String("pattern", rmPattern),
			zap.Int("deleted", n),
			zap.Error(err))
		return failure(ctx, "Failed to delete files", err)
	}
	return nil
}
