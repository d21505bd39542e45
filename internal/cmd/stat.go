package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
)

var errFileNotFound = errors.New("file not found")

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show size and timestamps of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

var existsCmd = &cobra.Command{
	Use:   "exists <path>",
	Short: "Report whether a file exists",
	Long: `Report whether a file exists.

Prints true or false. The exit code is 0 when the file exists and the
file-not-found code otherwise, so the command can be used in scripts.`,
	Args: cobra.ExactArgs(1),
	RunE: runExists,
}

var statJSON bool

func init() {
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(existsCmd)

	statCmd.Flags().BoolVar(&statJSON, "json", false, "output as JSON")
}

func runStat(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	fs, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(fs)

	path := args[0]
	info, err := fs.GetFileInfo(ctx, path)
	if err != nil {
		return failure(ctx, "Failed to get file info", err)
	}
	if info == nil {
		return exitError(foundry.ExitFileNotFound, "Cannot stat "+path, errFileNotFound)
	}

	out := cmd.OutOrStdout()
	if statJSON {
		return json.NewEncoder(out).Encode(toFileOutput(*info))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Path:\t%s\n", info.Path)
	_, _ = fmt.Fprintf(w, "Size:\t%s (%d bytes)\n", formatSize(info.Size), info.Size)
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", info.Created.Format("2006-01-02 15:04:05 MST"))
	_, _ = fmt.Fprintf(w, "Modified:\t%s\n", info.Modified.Format("2006-01-02 15:04:05 MST"))
	return w.Flush()
}

func runExists(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	fs, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(fs)

	path := args[0]
	ok, err := fs.Exists(ctx, path)
	if err != nil {
		observability.CLILogger.Error("Failed to check file", zap.String("path", path), zap.Error(err))
		return failure(ctx, "Failed to check file", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), ok)
	if !ok {
		return exitError(foundry.ExitFileNotFound, path, errFileNotFound)
	}
	return nil
}
