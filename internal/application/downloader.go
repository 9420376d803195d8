package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/metrics"
	"github.com/bnema/sentinel-tiles-cli/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	cycleDirMode = 0o755

	DefaultConcurrency = 5
	DefaultMinBytes    = 1024
	defaultBufferBytes = 8192 * 8
	defaultTimeout     = 300 * time.Second
)

type DownloadOptions struct {
	Concurrency int
	Timeout     time.Duration
	// MinBytes is the size a finished file must exceed to be kept.
	MinBytes    int64
	BufferBytes int
	Bands       []domain.Band
}

func (o DownloadOptions) withDefaults() DownloadOptions {
	if o.Concurrency < 1 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MinBytes <= 0 {
		o.MinBytes = DefaultMinBytes
	}
	if o.BufferBytes <= 0 {
		o.BufferBytes = defaultBufferBytes
	}
	if len(o.Bands) == 0 {
		o.Bands = domain.DefaultBands
	}
	return o
}

// DownloadEngine downloads the assets of one cycle at a time through a bounded
// worker pool. RunCycle returns only after every task of the cycle resolved.
type DownloadEngine struct {
	signer     ports.AssetSigner
	httpClient *http.Client
	manifest   ports.ManifestWriter
	opts       DownloadOptions
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

type DownloadEngineDeps struct {
	Signer     ports.AssetSigner
	HTTPClient *http.Client
	// Manifest is optional.
	Manifest ports.ManifestWriter
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

func NewDownloadEngine(deps DownloadEngineDeps, opts DownloadOptions) *DownloadEngine {
	client := deps.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	return &DownloadEngine{
		signer:     deps.Signer,
		httpClient: client,
		manifest:   deps.Manifest,
		opts:       opts.withDefaults(),
		logger:     logger,
		metrics:    m,
	}
}

func (e *DownloadEngine) withFields(fields ...zap.Field) *DownloadEngine {
	scoped := *e
	scoped.logger = e.logger.With(fields...)
	return &scoped
}

// CycleDir is the directory holding a cycle's band subdirectories.
func CycleDir(outputRoot string, cycle domain.Cycle) string {
	return filepath.Join(outputRoot, cycle.Name())
}

// Tasks builds one task per (item, band) where the item has that band's asset.
// Duplicate items resolve to the same destination and produce a single task.
func (e *DownloadEngine) Tasks(outputRoot string, cycle domain.Cycle) []domain.DownloadTask {
	cycleDir := CycleDir(outputRoot, cycle)
	seen := map[string]struct{}{}
	tasks := make([]domain.DownloadTask, 0, len(cycle.Items)*len(e.opts.Bands))

	for _, item := range cycle.Items {
		for _, band := range e.opts.Bands {
			asset, ok := item.Asset(band)
			if !ok {
				e.logger.Debug("item has no asset for band",
					zap.String("item", item.ID),
					zap.Error(fmt.Errorf("%w: %s", domain.ErrAssetMissing, band)),
				)
				e.metrics.Items.WithLabelValues("missing_asset").Inc()
				continue
			}
			destination := filepath.Join(cycleDir, string(band), domain.TileFileName(item.ID, band))
			if _, dup := seen[destination]; dup {
				continue
			}
			seen[destination] = struct{}{}
			tasks = append(tasks, domain.DownloadTask{
				ItemID:      item.ID,
				Collection:  item.Collection,
				Band:        band,
				Href:        asset.Href,
				Destination: destination,
			})
		}
	}

	return tasks
}

func (e *DownloadEngine) RunCycle(ctx context.Context, outputRoot string, cycle domain.Cycle) domain.CycleSummary {
	cycleDir := CycleDir(outputRoot, cycle)
	logger := e.logger.With(zap.String("cycle", cycle.Range.String()))
	logger.Info("processing cycle", zap.Int("items", len(cycle.Items)))

	tasks := e.Tasks(outputRoot, cycle)
	results := make([]domain.TaskResult, len(tasks))

	dirErr := e.prepareDirs(cycleDir)
	if dirErr != nil {
		logger.Error("create cycle directories", zap.Error(dirErr))
	}

	var group errgroup.Group
	group.SetLimit(e.opts.Concurrency)
	for i, task := range tasks {
		if dirErr != nil {
			results[i] = failed(task, domain.DownloadErrorFilesystem, dirErr)
			continue
		}
		group.Go(func() error {
			started := time.Now()
			results[i] = e.runTask(ctx, task)
			e.metrics.ObserveTask(results[i], time.Since(started).Seconds())
			e.logResult(logger, results[i])
			return nil
		})
	}
	_ = group.Wait()

	summary := domain.Summarize(cycle.Range, len(cycle.Items), results)
	logger.Info("download summary",
		zap.Int("successful", summary.Succeeded()),
		zap.Int("failed", summary.Failed),
		zap.Int("downloaded", summary.Completed),
		zap.Int("skipped", summary.Skipped),
	)

	if e.manifest != nil && dirErr == nil {
		if err := e.manifest.WriteCycle(ctx, cycleDir, summary); err != nil {
			logger.Warn("write cycle manifest", zap.Error(err))
		}
	}

	return summary
}

func (e *DownloadEngine) prepareDirs(cycleDir string) error {
	for _, band := range e.opts.Bands {
		if err := os.MkdirAll(filepath.Join(cycleDir, string(band)), cycleDirMode); err != nil {
			return fmt.Errorf("create band directory: %w", err)
		}
	}
	return nil
}

func (e *DownloadEngine) runTask(ctx context.Context, task domain.DownloadTask) domain.TaskResult {
	if _, err := os.Stat(task.Destination); err == nil {
		return domain.TaskResult{Task: task, State: domain.TaskSkippedExisting, Path: task.Destination}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return failed(task, domain.DownloadErrorFilesystem, fmt.Errorf("stat destination: %w", err))
	}

	if e.signer == nil {
		return failed(task, domain.DownloadErrorSigning, errors.New("no asset signer configured"))
	}
	signed, err := e.signer.Sign(ctx, task.Collection, task.Href)
	if err != nil {
		return failed(task, domain.DownloadErrorSigning, err)
	}

	written, err := e.fetch(ctx, signed, task.Destination)
	if err != nil {
		return domain.TaskResult{Task: task, State: domain.TaskFailed, Bytes: written, Err: err}
	}

	return domain.TaskResult{Task: task, State: domain.TaskCompleted, Path: task.Destination, Bytes: written}
}

// fetch streams signedURL into a temp file next to destination and renames it into
// place once the size check passed.
func (e *DownloadEngine) fetch(ctx context.Context, signedURL, destination string) (int64, error) {
	requestCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, signedURL, nil)
	if err != nil {
		return 0, &domain.DownloadError{Kind: domain.DownloadErrorNetwork, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, &domain.DownloadError{Kind: domain.DownloadErrorNetwork, Err: fmt.Errorf("perform request: %w", redactURL(err))}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return 0, &domain.DownloadError{Kind: domain.DownloadErrorNetwork, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	dir, base := filepath.Split(destination)
	tempFile, err := os.CreateTemp(dir, "."+base+"-*.part")
	if err != nil {
		return 0, &domain.DownloadError{Kind: domain.DownloadErrorFilesystem, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	buf := make([]byte, e.opts.BufferBytes)
	// Hide ReaderFrom so the copy goes through buf.
	written, copyErr := io.CopyBuffer(struct{ io.Writer }{tempFile}, resp.Body, buf)
	closeErr := tempFile.Close()
	if copyErr != nil {
		return written, &domain.DownloadError{Kind: domain.DownloadErrorNetwork, Err: fmt.Errorf("stream body: %w", copyErr)}
	}
	if closeErr != nil {
		return written, &domain.DownloadError{Kind: domain.DownloadErrorFilesystem, Err: fmt.Errorf("close temp file: %w", closeErr)}
	}

	if written <= e.opts.MinBytes {
		return written, &domain.DownloadError{
			Kind: domain.DownloadErrorTooSmall,
			Err:  fmt.Errorf("%w: %d bytes, need more than %d", domain.ErrFileTooSmall, written, e.opts.MinBytes),
		}
	}

	if err := os.Rename(tempName, destination); err != nil {
		return written, &domain.DownloadError{Kind: domain.DownloadErrorFilesystem, Err: fmt.Errorf("move into place: %w", err)}
	}
	cleanup = false

	return written, nil
}

func (e *DownloadEngine) logResult(logger *zap.Logger, result domain.TaskResult) {
	fields := []zap.Field{
		zap.String("item", result.Task.ItemID),
		zap.String("band", string(result.Task.Band)),
	}

	switch result.State {
	case domain.TaskSkippedExisting:
		logger.Info("file exists, skipping", append(fields, zap.String("path", result.Path))...)
	case domain.TaskCompleted:
		logger.Info("downloaded", append(fields, zap.String("path", result.Path), zap.Int64("kb", result.Bytes/1024))...)
	default:
		logger.Warn("download failed", append(fields,
			zap.String("kind", string(domain.DownloadErrorKindOf(result.Err))),
			zap.Error(result.Err),
		)...)
	}
}

func failed(task domain.DownloadTask, kind domain.DownloadErrorKind, err error) domain.TaskResult {
	return domain.TaskResult{
		Task:  task,
		State: domain.TaskFailed,
		Err:   &domain.DownloadError{Kind: kind, Err: err},
	}
}

// redactURL strips the query string, which carries the SAS token, from
// *url.Error messages.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if parsed, parseErr := url.Parse(urlErr.URL); parseErr == nil {
			parsed.RawQuery = ""
			urlErr.URL = parsed.String()
		}
	}
	return err
}
