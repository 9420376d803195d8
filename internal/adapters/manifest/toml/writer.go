package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	ManifestFileName = "manifest.toml"
	manifestFileMode = 0o644
	tempFilePattern  = ".manifest-*.toml.tmp"
)

// Writer records the outcome of every cycle in <cycleDir>/manifest.toml.
type Writer struct {
	Now func() time.Time
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.Mutex{}
)

var _ ports.ManifestWriter = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{Now: time.Now}
}

func (w *Writer) WriteCycle(ctx context.Context, cycleDir string, summary domain.CycleSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := manifestPath(cycleDir)
	if err != nil {
		return err
	}

	mu := lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	return writeSchema(path, w.toSchema(summary))
}

// Read decodes a manifest previously written by WriteCycle.
func Read(cycleDir string) (domain.CycleSummary, error) {
	path, err := manifestPath(cycleDir)
	if err != nil {
		return domain.CycleSummary{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.CycleSummary{}, fmt.Errorf("read manifest: %w", err)
	}

	var file manifestSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.CycleSummary{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.CycleSummary{}, err
	}
	file.applyDefaults()

	return fromSchema(file)
}

func (w *Writer) toSchema(summary domain.CycleSummary) manifestSchema {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	file := manifestSchema{
		Version:   currentSchemaVersion,
		Cycle:     summary.Cycle.String(),
		Start:     summary.Cycle.Start.Format(domain.DateLayout),
		End:       summary.Cycle.End.Format(domain.DateLayout),
		WrittenAt: now().UTC().Format(time.RFC3339),
		Items:     summary.Items,
		Counts: countsSchema{
			Completed: summary.Completed,
			Skipped:   summary.Skipped,
			Failed:    summary.Failed,
		},
		Tasks: make([]taskSchema, 0, len(summary.Results)),
	}

	for _, result := range summary.Results {
		entry := taskSchema{
			ItemID: result.Task.ItemID,
			Band:   string(result.Task.Band),
			State:  string(result.State),
			Path:   filepath.Base(result.Task.Destination),
			Bytes:  result.Bytes,
		}
		if result.Err != nil {
			entry.Kind = string(domain.DownloadErrorKindOf(result.Err))
			entry.Error = result.Err.Error()
			var downloadErr *domain.DownloadError
			if errors.As(result.Err, &downloadErr) && downloadErr.Err != nil {
				entry.Error = downloadErr.Err.Error()
			}
		}
		file.Tasks = append(file.Tasks, entry)
	}

	return file
}

func fromSchema(file manifestSchema) (domain.CycleSummary, error) {
	cycle, err := domain.ParseDateRange(file.Start, file.End)
	if err != nil {
		return domain.CycleSummary{}, fmt.Errorf("decode manifest cycle: %w", err)
	}

	results := make([]domain.TaskResult, 0, len(file.Tasks))
	for _, entry := range file.Tasks {
		result := domain.TaskResult{
			Task: domain.DownloadTask{
				ItemID:      entry.ItemID,
				Band:        domain.Band(entry.Band),
				Destination: entry.Path,
			},
			State: domain.TaskState(entry.State),
			Bytes: entry.Bytes,
		}
		if result.State != domain.TaskFailed {
			result.Path = entry.Path
		}
		if entry.Error != "" {
			result.Err = &domain.DownloadError{Kind: domain.DownloadErrorKind(entry.Kind), Err: errors.New(entry.Error)}
		}
		results = append(results, result)
	}

	return domain.Summarize(cycle, file.Items, results), nil
}

func manifestPath(cycleDir string) (string, error) {
	if cycleDir == "" {
		return "", errors.New("cycle directory is empty")
	}
	absDir, err := filepath.Abs(cycleDir)
	if err != nil {
		return "", fmt.Errorf("resolve cycle directory: %w", err)
	}
	return filepath.Join(filepath.Clean(absDir), ManifestFileName), nil
}

func lockForPath(path string) *sync.Mutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.Mutex{}
	pathLockMap[path] = mu
	return mu
}

func writeSchema(path string, file manifestSchema) error {
	file.applyDefaults()

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp manifest: %w", err)
	}

	if err := tempFile.Chmod(manifestFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp manifest: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}

	cleanup = false
	return nil
}
