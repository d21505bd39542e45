package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/storage"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the bucket can be listed, written, read and deleted",
	Long: `Run a put/delete round trip against the configured bucket.

A small object named <prefix><uuid>.probe is written, inspected, read back,
and deleted. Each step is reported. The command fails if any step fails.

Examples:
  nimbusfs probe
  nimbusfs probe --prefix _nimbusfs/ --json`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

var (
	probePrefix string
	probeJSON   bool
)

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVar(&probePrefix, "prefix", "_nimbusfs/probe/", "key prefix for the probe object")
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "output as JSONL")
}

// probeResult is one capability check.
type probeResult struct {
	Check    string        `json:"check"`
	Allowed  bool          `json:"allowed"`
	Method   string        `json:"method"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Check names are stable strings used in JSONL output.
const (
	checkList   = "storage.list"
	checkWrite  = "storage.write"
	checkInfo   = "storage.info"
	checkRead   = "storage.read"
	checkExists = "storage.exists"
	checkDelete = "storage.delete"
)

func runProbe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	fs, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(fs)

	results := probeStorage(ctx, fs, probePrefix, uuid.NewString())

	if err := outputProbe(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	for _, r := range results {
		if !r.Allowed {
			if ctx.Err() != nil {
				return failure(ctx, "Probe interrupted", ctx.Err())
			}
			return exitError(foundry.ExitExternalServiceUnavailable, "Probe failed at "+r.Check, fmt.Errorf("%s", r.Detail))
		}
	}
	return nil
}

// probeStorage runs the checks in order and stops at the first failure,
// except that a written probe object is always deleted.
func probeStorage(ctx context.Context, fs *storage.FileStorage, prefix, id string) []probeResult {
	key := prefix + id + ".probe"
	payload := []byte("nimbusfs probe " + id + "\n")
	log := observability.CLILogger.With(zap.String("key", key))

	var results []probeResult
	run := func(check, method string, fn func() error) bool {
		start := time.Now()
		err := fn()
		r := probeResult{Check: check, Allowed: err == nil, Method: method, Duration: time.Since(start)}
		if err != nil {
			r.Detail = err.Error()
			log.Warn("Probe check failed", zap.String("check", check), zap.Error(err))
		} else {
			log.Debug("Probe check passed", zap.String("check", check), zap.Duration("duration", r.Duration))
		}
		results = append(results, r)
		return err == nil
	}

	listed := run(checkList, fmt.Sprintf("GetPagedFileList(pageSize=1,pattern=%q)", prefix), func() error {
		_, err := fs.GetPagedFileList(ctx, 1, prefix)
		return err
	})
	if !listed {
		return results
	}

	written := run(checkWrite, fmt.Sprintf("SaveFile(%q)", key), func() error {
		return expectTrue(fs.SaveFile(ctx, key, bytes.NewReader(payload)))
	})
	if !written {
		return results
	}

	readable := run(checkInfo, fmt.Sprintf("GetFileInfo(%q)", key), func() error {
		info, err := fs.GetFileInfo(ctx, key)
		if err != nil {
			return err
		}
		if info == nil {
			return errFileNotFound
		}
		if info.Size != int64(len(payload)) {
			return fmt.Errorf("size %d, want %d", info.Size, len(payload))
		}
		return nil
	})
	readable = readable && run(checkRead, fmt.Sprintf("GetFileStream(%q)", key), func() error {
		stream, err := fs.GetFileStream(ctx, key)
		if err != nil {
			return err
		}
		if stream == nil {
			return errFileNotFound
		}
		defer func() { _ = stream.Close() }()
		got, err := io.ReadAll(stream)
		if err != nil {
			return err
		}
		if !bytes.Equal(got, payload) {
			return fmt.Errorf("read back %d bytes that differ from the %d written", len(got), len(payload))
		}
		return nil
	})
	if readable {
		run(checkExists, fmt.Sprintf("Exists(%q)", key), func() error {
			return expectTrue(fs.Exists(ctx, key))
		})
	}

	// Clean up even after a failed read check.
	cleanupCtx := context.WithoutCancel(ctx)
	deleted := run(checkDelete, fmt.Sprintf("DeleteFile(%q)", key), func() error {
		if err := expectTrue(fs.DeleteFile(cleanupCtx, key)); err != nil {
			return err
		}
		exists, err := fs.Exists(cleanupCtx, key)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("object still present after delete")
		}
		return nil
	})
	if !deleted {
		log.Error("Probe object left behind", zap.String("key", key))
	}
	return results
}

// expectTrue turns a logged false result into an error.
func expectTrue(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return errOperationFailed
	}
	return nil
}

func outputProbe(w io.Writer, results []probeResult) error {
	if probeJSON {
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "CHECK\tRESULT\tDURATION\tDETAIL"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range results {
		status := "ok"
		if !r.Allowed {
			status = "FAILED"
		}
		detail := strings.ReplaceAll(r.Detail, "\n", " ")
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Check, status, r.Duration.Round(time.Millisecond), detail); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	return tw.Flush()
}
