package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
)

var cpCmd = &cobra.Command{
	Use:   "cp <path> <target>",
	Short: "Copy a file within the bucket",
	Args:  cobra.ExactArgs(2),
	RunE:  runCp,
}

var mvCmd = &cobra.Command{
	Use:   "mv <path> <target>",
	Short: "Rename a file within the bucket",
	Long: `Rename a file by copying it to target and deleting the original.

If the delete fails the file is left under both names and the command fails.`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

func init() {
	rootCmd.AddCommand(cpCmd)
	rootCmd.AddCommand(mvCmd)
}

func runCp(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	fs, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(fs)

	ok, err := fs.CopyFile(ctx, args[0], args[1])
	if err != nil {
		return failure(ctx, "Failed to copy file", err)
	}
	if !ok {
		return exitError(foundry.ExitExternalServiceUnavailable,
			fmt.Sprintf("Failed to copy %s to %s", args[0], args[1]), errOperationFailed)
	}
	observability.CLILogger.Info("Copied file", zap.String("path", args[0]), zap.String("target", args[1]))
	return nil
}

func runMv(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	fs, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(fs)

	ok, err := fs.RenameFile(ctx, args[0], args[1])
	if err != nil {
		return failure(ctx, "Failed to rename file", err)
	}
	if !ok {
		return exitError(foundry.ExitExternalServiceUnavailable,
			fmt.Sprintf("Failed to rename %s to %s", args[0], args[1]), errOperationFailed)
	}
	observability.CLILogger.Info("Renamed file", zap.String("path", args[0]), zap.String("target", args[1]))
	return nil
}
