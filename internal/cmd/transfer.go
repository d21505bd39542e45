package cmd

import (
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
)

var getCmd = &cobra.Command{
	Use:   "get <path> [dest]",
	Short: "Download a file",
	Long: `Download a file to dest, or to stdout when dest is omitted or "-".

Examples:
  nimbusfs get reports/q1.csv
  nimbusfs get reports/q1.csv ./q1.csv`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

var putCmd = &cobra.Command{
	Use:   "put <src> <path>",
	Short: "Upload a file",
	Long: `Upload src to path, replacing any existing file. Use "-" to read stdin.

Non-seekable input is buffered in memory up to upload.buffer_max_memory_bytes
and spooled to a temporary file beyond that.

Examples:
  nimbusfs put ./q1.csv reports/q1.csv
  tar cz data | nimbusfs put - backups/data.tgz`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	fs, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(fs)

	path := args[0]
	stream, err := fs.GetFileStream(ctx, path)
	if err != nil {
		return failure(ctx, "Failed to open file", err)
	}
	if stream == nil {
		return exitError(foundry.ExitFileNotFound, "Cannot get "+path, errFileNotFound)
	}
	defer func() { _ = stream.Close() }()

	if len(args) < 2 || args[1] == "-" {
		if _, err := io.Copy(cmd.OutOrStdout(), stream); err != nil {
			return failure(ctx, "Failed to read file", err)
		}
		return nil
	}

	dest := args[1]
	f, err := os.Create(dest)
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to create "+dest, err)
	}
	n, err := io.Copy(f, stream)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		if ctx.Err() != nil {
			return failure(ctx, "Failed to download file", err)
		}
		return exitError(foundry.ExitFileWriteError, "Failed to write "+dest, err)
	}

	observability.CLILogger.Info("Downloaded file",
		zap.String("path", path),
		zap.String("dest", dest),
		zap.Int64("bytes", n))
	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	src, path := args[0], args[1]
	var r io.Reader
	if src == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(src)
		if err != nil {
			if os.IsNotExist(err) {
				return exitError(foundry.ExitFileNotFound, "Cannot read "+src, err)
			}
			return exitError(foundry.ExitFileReadError, "Cannot read "+src, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	fs, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(fs)

	ok, err := fs.SaveFile(ctx, path, r)
	if err != nil {
		return failure(ctx, "Failed to upload file", err)
	}
	if !ok {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to upload "+path, errOperationFailed)
	}

	observability.CLILogger.Info("Uploaded file", zap.String("src", src), zap.String("path", path))
	return nil
}
