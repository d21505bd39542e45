package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/3leaps/nimbusfs/pkg/storage"
)

// fileOutput is the JSON output structure for a file.
type fileOutput struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// cursorOutput is the JSONL record that ends a page with more results.
type cursorOutput struct {
	Type   string `json:"type"`
	Cursor string `json:"cursor"`
}

func toFileOutput(f storage.FileSpec) fileOutput {
	return fileOutput{Path: f.Path, Size: f.Size, Created: f.Created, Modified: f.Modified}
}

// outputJSON writes files as JSONL.
func outputJSON(w io.Writer, files []storage.FileSpec) error {
	enc := json.NewEncoder(w)
	for _, f := range files {
		if err := enc.Encode(toFileOutput(f)); err != nil {
			return fmt.Errorf("failed to encode file: %w", err)
		}
	}
	return nil
}

// outputTable writes files as a formatted table.
func outputTable(w io.Writer, files []storage.FileSpec) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No files found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "PATH\tSIZE\tMODIFIED"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var totalSize int64
	for _, f := range files {
		totalSize += f.Size
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n",
			f.Path,
			formatSize(f.Size),
			f.Modified.Format("2006-01-02 15:04:05")); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	_, err := fmt.Fprintf(w, "\nFound %d file(s) (%s total)\n", len(files), formatSize(totalSize))
	return err
}

// outputFiles writes files as JSONL or a table.
func outputFiles(w io.Writer, files []storage.FileSpec, asJSON bool) error {
	if asJSON {
		return outputJSON(w, files)
	}
	return outputTable(w, files)
}

// outputCursor reports the token that resumes a paged listing.
func outputCursor(w io.Writer, cur *storage.Cursor, asJSON bool) error {
	if cur == nil {
		return nil
	}
	token := cur.Encode()
	if asJSON {
		return json.NewEncoder(w).Encode(cursorOutput{Type: "cursor", Cursor: token})
	}
	_, err := fmt.Fprintf(w, "More results: --cursor %s\n", token)
	return err
}

// formatSize formats bytes as a human-readable string.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
