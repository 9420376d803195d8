package application

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/metrics"
	"github.com/bnema/sentinel-tiles-cli/internal/ports/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type assetServer struct {
	*httptest.Server
	hits     atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

// newAssetServer serves 4 KiB bodies, except for paths containing "small"
// (100 bytes) or "missing" (404).
func newAssetServer(t *testing.T, delay time.Duration) *assetServer {
	t.Helper()

	s := &assetServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		current := s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		for {
			seen := s.maxSeen.Load()
			if current <= seen || s.maxSeen.CompareAndSwap(seen, current) {
				break
			}
		}

		assert.Equal(t, "sig=abc", r.URL.RawQuery)
		time.Sleep(delay)

		switch {
		case strings.Contains(r.URL.Path, "missing"):
			http.NotFound(w, r)
		case strings.Contains(r.URL.Path, "small"):
			_, _ = w.Write(bytes.Repeat([]byte("x"), 100))
		default:
			_, _ = w.Write(bytes.Repeat([]byte("x"), 4096))
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func passthroughSigner(t *testing.T) *mocks.MockAssetSigner {
	signer := mocks.NewMockAssetSigner(t)
	signer.EXPECT().Sign(mock.Anything, "sentinel-1-grd", mock.Anything).RunAndReturn(func(_ context.Context, _ string, href string) (string, error) {
		return href + "?sig=abc", nil
	}).Maybe()
	return signer
}

func testCycle(t *testing.T, items ...domain.CatalogItem) domain.Cycle {
	t.Helper()
	return domain.Cycle{Range: mustRange(t, "2021-01-01", "2021-01-12"), Items: items}
}

func TestRunCycleDownloadsThenSkipsOnSecondRun(t *testing.T) {
	server := newAssetServer(t, 0)
	root := t.TempDir()
	cycle := testCycle(t,
		testItem("S1A_IW_GRDH_1", "2021-01-02T00:00:00Z", server.URL+"/assets", domain.BandVV, domain.BandVH),
		testItem("S1A_IW_GRDH_2", "2021-01-05T00:00:00Z", server.URL+"/assets", domain.BandVV, domain.BandVH),
	)

	m := metrics.New()
	first := NewDownloadEngine(DownloadEngineDeps{Signer: passthroughSigner(t), HTTPClient: server.Client(), Metrics: m}, DownloadOptions{})
	summary := first.RunCycle(context.Background(), root, cycle)

	assert.Equal(t, 4, summary.Completed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, int32(4), server.hits.Load())
	for _, result := range summary.Results {
		info, err := os.Stat(result.Path)
		require.NoError(t, err)
		assert.Equal(t, int64(4096), info.Size())
		assert.Equal(t, filepath.Join(root, "2021-01-01_cycle", string(result.Task.Band)), filepath.Dir(result.Path))
	}
	assert.FileExists(t, filepath.Join(root, "2021-01-01_cycle", "vv", "S1A_IW_GRDH_1_vv.tif"))
	assert.FileExists(t, filepath.Join(root, "2021-01-01_cycle", "vh", "S1A_IW_GRDH_2_vh.tif"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Downloads.WithLabelValues("vv", "completed")))

	// No expectations: any signing call fails the test.
	noNetwork := mocks.NewMockAssetSigner(t)
	second := NewDownloadEngine(DownloadEngineDeps{Signer: noNetwork, HTTPClient: server.Client()}, DownloadOptions{})
	summary = second.RunCycle(context.Background(), root, cycle)

	assert.Equal(t, 0, summary.Completed)
	assert.Equal(t, 4, summary.Skipped)
	assert.Equal(t, 4, summary.Succeeded())
	assert.Equal(t, int32(4), server.hits.Load())
	for _, result := range summary.Results {
		assert.Equal(t, domain.TaskSkippedExisting, result.State)
	}
}

func TestRunCycleDeletesTooSmallFiles(t *testing.T) {
	server := newAssetServer(t, 0)
	root := t.TempDir()
	cycle := testCycle(t, testItem("small-item", "2021-01-02T00:00:00Z", server.URL+"/assets", domain.BandVV))

	engine := NewDownloadEngine(DownloadEngineDeps{Signer: passthroughSigner(t), HTTPClient: server.Client()}, DownloadOptions{})
	summary := engine.RunCycle(context.Background(), root, cycle)

	require.Len(t, summary.Results, 1)
	result := summary.Results[0]
	assert.Equal(t, domain.TaskFailed, result.State)
	assert.Equal(t, domain.DownloadErrorTooSmall, domain.DownloadErrorKindOf(result.Err))
	assert.True(t, errors.Is(result.Err, domain.ErrFileTooSmall))
	assert.NoFileExists(t, result.Task.Destination)

	entries, err := os.ReadDir(filepath.Join(root, "2021-01-01_cycle", "vv"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunCycleIsolatesTaskFailures(t *testing.T) {
	server := newAssetServer(t, 0)
	root := t.TempDir()

	signer := mocks.NewMockAssetSigner(t)
	signer.EXPECT().Sign(mock.Anything, "sentinel-1-grd", mock.Anything).RunAndReturn(func(_ context.Context, _ string, href string) (string, error) {
		if strings.Contains(href, "unsignable") {
			return "", errors.New("sas endpoint unavailable")
		}
		return href + "?sig=abc", nil
	})

	cycle := testCycle(t,
		testItem("good", "2021-01-02T00:00:00Z", server.URL+"/assets", domain.BandVV, domain.BandVH),
		testItem("missing", "2021-01-03T00:00:00Z", server.URL+"/assets", domain.BandVV),
		testItem("unsignable", "2021-01-04T00:00:00Z", server.URL+"/assets", domain.BandVH),
	)

	logger, logs := observedLogger()
	engine := NewDownloadEngine(DownloadEngineDeps{Signer: signer, HTTPClient: server.Client(), Logger: logger}, DownloadOptions{})
	summary := engine.RunCycle(context.Background(), root, cycle)

	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 2, summary.Failed)

	kinds := map[string]domain.DownloadErrorKind{}
	for _, result := range summary.Results {
		if result.State == domain.TaskFailed {
			kinds[result.Task.ItemID] = domain.DownloadErrorKindOf(result.Err)
		}
	}
	assert.Equal(t, map[string]domain.DownloadErrorKind{
		"missing":    domain.DownloadErrorNetwork,
		"unsignable": domain.DownloadErrorSigning,
	}, kinds)
	assert.Equal(t, 2, logs.FilterMessage("download failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("download summary").Len())
}

func TestRunCycleBoundsConcurrency(t *testing.T) {
	server := newAssetServer(t, 30*time.Millisecond)
	root := t.TempDir()

	var items []domain.CatalogItem
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		items = append(items, testItem(id, "2021-01-02T00:00:00Z", server.URL+"/assets", domain.BandVV, domain.BandVH))
	}

	engine := NewDownloadEngine(DownloadEngineDeps{Signer: passthroughSigner(t), HTTPClient: server.Client()}, DownloadOptions{Concurrency: 5})
	summary := engine.RunCycle(context.Background(), root, testCycle(t, items...))

	assert.Equal(t, 12, summary.Completed)
	assert.LessOrEqual(t, server.maxSeen.Load(), int32(5))
	assert.Equal(t, int32(0), server.inFlight.Load())
}

func TestTasksSkipsMissingBandsAndDuplicates(t *testing.T) {
	root := t.TempDir()
	item := testItem("S1B/IW/1", "2021-01-02T00:00:00Z", "https://blob.example", domain.BandVV)
	cycle := testCycle(t, item, item)

	logger, logs := observedLogger()
	m := metrics.New()
	engine := NewDownloadEngine(DownloadEngineDeps{Logger: logger, Metrics: m}, DownloadOptions{})
	tasks := engine.Tasks(root, cycle)

	require.Len(t, tasks, 1)
	assert.Equal(t, domain.BandVV, tasks[0].Band)
	assert.Equal(t, filepath.Join(root, "2021-01-01_cycle", "vv", "S1B_IW_1_vv.tif"), tasks[0].Destination)
	assert.Equal(t, "https://blob.example/S1B/IW/1/vv.tif", tasks[0].Href)

	missing := logs.FilterMessage("item has no asset for band").All()
	require.Len(t, missing, 2)
	err, ok := missing[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, err, domain.ErrAssetMissing.Error())
	assert.Contains(t, err, "vh")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Items.WithLabelValues("missing_asset")))
}

func TestRunCycleWritesManifestAfterBarrier(t *testing.T) {
	server := newAssetServer(t, 0)
	root := t.TempDir()
	cycle := testCycle(t, testItem("one", "2021-01-02T00:00:00Z", server.URL+"/assets", domain.BandVV, domain.BandVH))

	manifest := mocks.NewMockManifestWriter(t)
	manifest.EXPECT().WriteCycle(mock.Anything, filepath.Join(root, "2021-01-01_cycle"), mock.Anything).
		RunAndReturn(func(_ context.Context, _ string, summary domain.CycleSummary) error {
			assert.Len(t, summary.Results, 2)
			for _, result := range summary.Results {
				assert.NotEmpty(t, result.State)
			}
			return errors.New("disk full")
		}).Once()

	logger, logs := observedLogger()
	engine := NewDownloadEngine(DownloadEngineDeps{Signer: passthroughSigner(t), HTTPClient: server.Client(), Manifest: manifest, Logger: logger}, DownloadOptions{})
	summary := engine.RunCycle(context.Background(), root, cycle)

	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, logs.FilterMessage("write cycle manifest").Len())
}

func TestRunCycleFailsTasksWhenCycleDirectoryCannotBeCreated(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("not a dir"), 0o644))

	cycle := testCycle(t, testItem("one", "2021-01-02T00:00:00Z", "https://blob.example", domain.BandVV))
	engine := NewDownloadEngine(DownloadEngineDeps{Signer: mocks.NewMockAssetSigner(t)}, DownloadOptions{})
	summary := engine.RunCycle(context.Background(), root, cycle)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, domain.DownloadErrorFilesystem, domain.DownloadErrorKindOf(summary.Results[0].Err))
}
