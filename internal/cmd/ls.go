package cmd

import (
	"context"
	"io"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/storage"
)

var lsCmd = &cobra.Command{
	Use:   "ls [pattern]",
	Short: "List files matching a search pattern",
	Long: `List files in the bucket.

The pattern is a key prefix, or a wildcard pattern where '*' matches any run
of characters including '/'. Backslashes are read as '/'.

Without paging flags every match is listed, after --skip and up to --limit.
With --paged, --page-size or --cursor one page is listed, followed by a
cursor token that resumes the listing. --all-pages walks every page.

Examples:
  nimbusfs ls
  nimbusfs ls reports/2024/
  nimbusfs ls 'reports/*.csv' --exclude '**/*.tmp'
  nimbusfs ls 'logs/*' --page-size 50
  nimbusfs ls --cursor eyJwYWdlX3NpemUiOjUwLCJwYWdlIjoyfQ
  nimbusfs ls 'logs/*' --all-pages --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var (
	lsLimit    int
	lsSkip     int
	lsExcludes []string
	lsPaged    bool
	lsPageSize int
	lsCursor   string
	lsAllPages bool
	lsJSON     bool
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().IntVarP(&lsLimit, "limit", "n", 0, "max files to list (0 for all)")
	lsCmd.Flags().IntVar(&lsSkip, "skip", 0, "matches to skip before listing")
	lsCmd.Flags().StringSliceVar(&lsExcludes, "exclude", nil, "doublestar glob of keys to drop (repeatable)")
	lsCmd.Flags().BoolVar(&lsPaged, "paged", false, "list one page and print a resume cursor")
	lsCmd.Flags().IntVar(&lsPageSize, "page-size", 0, "files per page (default: listing.page_size)")
	lsCmd.Flags().StringVar(&lsCursor, "cursor", "", "resume a paged listing from a cursor token")
	lsCmd.Flags().BoolVar(&lsAllPages, "all-pages", false, "walk every page of a paged listing")
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "output as JSONL")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	pattern := ""
	if len(args) == 1 {
		pattern = args[0]
	}
	excludes := append(append([]string{}, appConfig.Listing.Excludes...), lsExcludes...)

	fs, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(fs)

	out := cmd.OutOrStdout()
	paged := lsPaged || lsAllPages || lsCursor != "" || cmd.Flags().Changed("page-size")
	if !paged {
		files, err := fs.GetFileList(ctx, storage.ListOptions{
			Pattern:  pattern,
			Limit:    lsLimit,
			Skip:     lsSkip,
			Excludes: excludes,
		})
		if err != nil {
			observability.CLILogger.Error("Failed to list files", zap.String("pattern", pattern), zap.Error(err))
			return failure(ctx, "Failed to list files", err)
		}
		return outputFiles(out, files, lsJSON)
	}

	page, err := firstPage(ctx, fs, pattern, excludes)
	for {
		if err != nil {
			if page != nil && page.Partial {
				_ = outputFiles(out, page.Files, lsJSON)
			}
			observability.CLILogger.Error("Failed to list page", zap.String("pattern", pattern), zap.Error(err))
			return failure(ctx, "Failed to list files", err)
		}
		if err := outputPage(out, page, !lsAllPages); err != nil {
			return err
		}
		if !lsAllPages || !page.HasMore {
			return nil
		}
		page, err = fs.NextPage(ctx, page)
	}
}

// firstPage starts a paged listing, from --cursor when given.
func firstPage(ctx context.Context, fs *storage.FileStorage, pattern string, excludes []string) (*storage.Page, error) {
	if lsCursor != "" {
		cur, err := storage.DecodeCursor(lsCursor)
		if err != nil {
			return nil, exitError(foundry.ExitInvalidArgument, "Invalid cursor", err)
		}
		observability.CLILogger.Debug("Resuming listing",
			zap.String("pattern", cur.Pattern),
			zap.Int("page", cur.Page),
			zap.Int("page_size", cur.PageSize))
		return fs.FetchPage(ctx, cur)
	}

	size := lsPageSize
	if size <= 0 {
		size = appConfig.Listing.PageSize
	}
	return fs.GetPagedFileList(ctx, size, pattern, excludes...)
}

// outputPage writes one page and, when withCursor is set, its resume token.
func outputPage(w io.Writer, page *storage.Page, withCursor bool) error {
	if err := outputFiles(w, page.Files, lsJSON); err != nil {
		return err
	}
	if withCursor && page.HasMore {
		return outputCursor(w, page.Next, lsJSON)
	}
	return nil
}
