// package batch implements the Batch Manager operations: create, status,
// retrieve, cancel, list and watch, each a short synchronous sequence of
// remote calls with a structured log entry per call.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/xdjs/artist-bio-gen-batch/internal/openai"
	"github.com/xdjs/artist-bio-gen-batch/internal/shared"
	"github.com/xdjs/artist-bio-gen-batch/internal/ui"
	"golang.org/x/time/rate"
)

// Client is the remote surface the Manager drives. [*openai.Client]
// implements it; tests substitute a mock.
type Client interface {
	UploadFile(ctx context.Context, filename string, r io.Reader) (*openai.File, error)
	CreateBatch(ctx context.Context, req openai.BatchRequest) (*openai.Batch, error)
	RetrieveBatch(ctx context.Context, batchID string) (*openai.Batch, error)
	CancelBatch(ctx context.Context, batchID string) (*openai.Batch, error)
	ListBatches(ctx context.Context, limit int) (*openai.BatchList, error)
	FileContent(ctx context.Context, fileID string, w io.Writer) (int64, error)
}

// Manager holds the dependencies shared by every operation. Each CLI
// invocation runs exactly one operation end-to-end; no state survives it.
type Manager struct {
	client  Client
	logger  *log.Logger
	output  io.Writer
	errOut  io.Writer
	verbose bool
}

// ManagerOpts contains configuration options for creating a Manager.
type ManagerOpts struct {
	Client  Client
	Logger  *log.Logger // structured per-call log, usually file-backed
	Output  io.Writer   // human-readable summaries
	ErrOut  io.Writer   // warnings
	Verbose bool        // additionally dump raw API responses to Output
}

// NewManager creates a Manager with the provided dependencies.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	return &Manager{
		client:  opts.Client,
		logger:  opts.Logger,
		output:  opts.Output,
		errOut:  opts.ErrOut,
		verbose: opts.Verbose,
	}
}

func (m *Manager) printf(format string, args ...any) {
	fmt.Fprintf(m.output, format+"\n", args...)
}

func (m *Manager) warnf(format string, args ...any) {
	fmt.Fprintln(m.errOut, ui.Warn(fmt.Sprintf("Warning: "+format, args...)))
}

// dumpResponse pretty-prints a raw API response when --verbose is set.
// The log never receives these dumps for downloads; see download.
func (m *Manager) dumpResponse(name string, v any) {
	if !m.verbose {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(m.output, "unable to serialize %s response: %v\n", name, err)
		return
	}
	fmt.Fprintf(m.output, "\n%s\n%s\n\n", ui.Help("Raw API response ("+name+"):"), data)
}

func styleStatus(s openai.BatchStatus) string {
	switch s {
	case openai.StatusCompleted:
		return ui.OK(string(s))
	case openai.StatusFailed, openai.StatusExpired, openai.StatusCancelled:
		return ui.Err(string(s))
	case openai.StatusCancelling:
		return ui.Warn(string(s))
	default:
		return string(s)
	}
}

// DefaultResultsPath is the download target used when the caller does not
// supply one.
func DefaultResultsPath(batchID string) string {
	return fmt.Sprintf("results_%s.jsonl", batchID)
}

// Create uploads the local input file with purpose=batch, creates a batch
// job over the returned file ID and reports both identifiers.
func (m *Manager) Create(ctx context.Context, path, endpoint, window string) error {
	info, err := os.Stat(path)
	if err != nil {
		m.logger.Error("input file not found", "op", "create", "path", path)
		return fmt.Errorf("%w: %s", shared.ErrInputAccess, path)
	}
	if info.IsDir() {
		m.logger.Error("input path is not a file", "op", "create", "path", path)
		return fmt.Errorf("%w: %s is a directory", shared.ErrInputAccess, path)
	}

	f, err := os.Open(path)
	if err != nil {
		m.logger.Error("input file unreadable", "op", "create", "path", path, "err", err)
		return fmt.Errorf("%w: %v", shared.ErrInputAccess, err)
	}
	defer f.Close()

	m.logger.Info("starting file upload", "op", "upload", "path", path, "bytes", info.Size())
	file, err := m.client.UploadFile(ctx, filepath.Base(path), f)
	if err != nil {
		m.logger.Error("upload failed", "op", "upload", "err", err)
		return err
	}
	m.logger.Info("upload succeeded", "op", "upload", "file_id", file.ID, "bytes", file.Bytes)
	m.dumpResponse("upload", file)

	m.logger.Info("starting batch creation", "op", "create_batch",
		"file_id", file.ID, "endpoint", endpoint, "window", window)
	batch, err := m.client.CreateBatch(ctx, openai.BatchRequest{
		InputFileID:      file.ID,
		Endpoint:         endpoint,
		CompletionWindow: window,
	})
	if err != nil {
		m.logger.Error("batch creation failed", "op", "create_batch", "err", err)
		return err
	}
	m.logger.Info("batch created", "op", "create_batch", "batch_id", batch.ID, "status", batch.Status)
	m.dumpResponse("create_batch", batch)

	m.printf("File ID: %s", file.ID)
	m.printf("Batch ID: %s", batch.ID)
	return nil
}

// Status reports the batch's current state and timestamps. A completed
// batch with auto-save enabled additionally downloads its results; an
// auto-save failure is a warning, not a fatal error.
func (m *Manager) Status(ctx context.Context, batchID string, autoSave bool, outPath string) error {
	batch, err := m.fetch(ctx, batchID)
	if err != nil {
		return err
	}

	m.report(batch)

	if !batch.Status.Succeeded() || !autoSave {
		return nil
	}

	if batch.OutputFileID == "" {
		m.warnf("batch completed but no output file id found")
		m.logger.Warn("completed batch without output file id", "op", "status", "batch_id", batchID)
		return nil
	}

	if outPath == "" {
		outPath = DefaultResultsPath(batchID)
	}
	n, err := m.download(ctx, batch.OutputFileID, outPath)
	if err != nil {
		m.warnf("failed to auto-save results: %v", err)
		m.logger.Error("auto-save failed", "op", "download", "err", err)
		return nil
	}
	m.printf("Results saved: %s (%d bytes)", outPath, n)
	return nil
}

// Retrieve downloads the results of a completed batch. Any non-completed
// status is a fatal state error; no partial download is attempted.
func (m *Manager) Retrieve(ctx context.Context, batchID, outPath string) error {
	batch, err := m.fetch(ctx, batchID)
	if err != nil {
		return err
	}

	if !batch.Status.Succeeded() {
		m.logger.Error("attempted to retrieve incomplete batch",
			"op", "retrieve", "batch_id", batchID, "status", batch.Status)
		return fmt.Errorf("%w (status: %s): wait for completion or check `status`",
			shared.ErrBatchNotDone, batch.Status)
	}
	if batch.OutputFileID == "" {
		m.logger.Error("completed batch without output file id", "op", "retrieve", "batch_id", batchID)
		return fmt.Errorf("%w: %s", shared.ErrNoOutputFile, batchID)
	}

	if outPath == "" {
		outPath = DefaultResultsPath(batchID)
	}
	if _, err := m.download(ctx, batch.OutputFileID, outPath); err != nil {
		return err
	}
	m.printf("Results saved: %s", outPath)
	return nil
}

// Cancel requests cancellation and reports the resulting state. This is
// fire-and-report; the remote side finalizes on its own schedule.
func (m *Manager) Cancel(ctx context.Context, batchID string) error {
	m.logger.Info("starting batch cancellation", "op", "cancel", "batch_id", batchID)
	batch, err := m.client.CancelBatch(ctx, batchID)
	if err != nil {
		m.logger.Error("cancellation failed", "op", "cancel", "err", err)
		return err
	}
	m.logger.Info("cancellation requested", "op", "cancel", "batch_id", batchID, "status", batch.Status)
	m.dumpResponse("cancel", batch)

	m.printf("Batch cancellation initiated: %s", batchID)
	m.printf("Status: %s", styleStatus(batch.Status))
	if !batch.Created().IsZero() {
		m.printf("Created: %s", batch.Created().Format(time.RFC3339))
	}

	switch batch.Status {
	case openai.StatusCancelled:
		m.printf("%s", ui.Help("Note: Batch was cancelled. Any completed requests have been processed and you will be charged for them."))
	case openai.StatusCancelling:
		m.printf("%s", ui.Help("Note: Batch cancellation in progress. This may take up to 10 minutes."))
	}
	return nil
}

// List prints a numbered summary of batch jobs, most recent first as the
// remote service returns them.
func (m *Manager) List(ctx context.Context, limit int) error {
	m.logger.Info("starting batch listing", "op", "list", "limit", limit)
	list, err := m.client.ListBatches(ctx, limit)
	if err != nil {
		m.logger.Error("listing failed", "op", "list", "err", err)
		return err
	}
	m.logger.Info("listing succeeded", "op", "list", "count", len(list.Data))
	m.dumpResponse("list", list)

	if len(list.Data) == 0 {
		m.printf("No batch jobs found.")
		return nil
	}

	m.printf("%s", ui.Title(fmt.Sprintf("Found %d batch job(s):", len(list.Data))))
	m.printf("")
	for i, batch := range list.Data {
		m.printf("%d. Batch ID: %s", i+1, batch.ID)
		m.printf("   Status: %s", styleStatus(batch.Status))
		m.printf("   Endpoint: %s", batch.Endpoint)
		if !batch.Created().IsZero() {
			m.printf("   Created: %s", batch.Created().Format(time.RFC3339))
		}
		if !batch.Completed().IsZero() {
			m.printf("   Completed: %s", batch.Completed().Format(time.RFC3339))
		}
		if c := batch.RequestCounts; c != nil {
			m.printf("   Requests: %d/%d completed, %d failed", c.Completed, c.Total, c.Failed)
		}
		m.printf("")
	}
	return nil
}

// Watch re-checks a batch's status at the given interval until it reaches a
// terminal state, then behaves like Status (auto-save included). Context
// cancellation stops the loop cleanly.
func (m *Manager) Watch(ctx context.Context, batchID string, interval time.Duration, autoSave bool, outPath string) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("watch stopped: %w", err)
		}

		batch, err := m.fetch(ctx, batchID)
		if err != nil {
			return err
		}

		if batch.Status.Terminal() {
			if batch.Status.Succeeded() && autoSave {
				return m.Status(ctx, batchID, true, outPath)
			}
			m.report(batch)
			return nil
		}

		m.printf("[%s] Status: %s", time.Now().Format("15:04:05"), styleStatus(batch.Status))
	}
}

// fetch retrieves the batch with per-call logging.
func (m *Manager) fetch(ctx context.Context, batchID string) (*openai.Batch, error) {
	m.logger.Info("retrieving batch status", "op", "get_status", "batch_id", batchID)
	batch, err := m.client.RetrieveBatch(ctx, batchID)
	if err != nil {
		m.logger.Error("status retrieval failed", "op", "get_status", "err", err)
		return nil, err
	}
	m.logger.Info("status retrieved", "op", "get_status", "batch_id", batchID, "status", batch.Status)
	m.dumpResponse("get_status", batch)
	return batch, nil
}

// report prints the status summary lines shared by Status and Watch.
func (m *Manager) report(batch *openai.Batch) {
	m.printf("Status: %s", styleStatus(batch.Status))
	if !batch.Created().IsZero() {
		m.printf("Created: %s", batch.Created().Format(time.RFC3339))
	}
	if !batch.Completed().IsZero() {
		m.printf("Completed: %s", batch.Completed().Format(time.RFC3339))
	}
}

// download streams the remote file verbatim to path, creating parent
// directories and warning on overwrite. The log records only the path and
// byte count, never the content.
func (m *Manager) download(ctx context.Context, fileID, path string) (int64, error) {
	m.logger.Info("starting download", "op", "download", "output_file_id", fileID, "path", path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		m.warnf("overwriting existing file: %s", path)
		m.logger.Warn("overwriting existing file", "op", "download", "path", path)
	}

	f, err := os.Create(path)
	if err != nil {
		m.logger.Error("download failed", "op", "download", "err", err)
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	n, err := m.client.FileContent(ctx, fileID, f)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		m.logger.Error("download failed", "op", "download", "err", err)
		return n, err
	}

	m.logger.Info("download succeeded", "op", "download", "path", path, "bytes", n)
	return n, nil
}
