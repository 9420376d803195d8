package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/ports"
	"github.com/bnema/sentinel-tiles-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"
)

type pipelineFixture struct {
	geometry *mocks.MockGeometryProvider
	catalog  *mocks.MockCatalogSearcher
	signer   *mocks.MockAssetSigner
	pipeline *Pipeline
	logs     *observer.ObservedLogs
}

func newPipelineFixture(t *testing.T, signer *mocks.MockAssetSigner, client *assetServer) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		geometry: mocks.NewMockGeometryProvider(t),
		catalog:  mocks.NewMockCatalogSearcher(t),
		signer:   signer,
	}
	if f.signer == nil {
		f.signer = mocks.NewMockAssetSigner(t)
	}

	engineDeps := DownloadEngineDeps{Signer: f.signer}
	if client != nil {
		engineDeps.HTTPClient = client.Client()
	}

	logger, logs := observedLogger()
	f.logs = logs
	f.pipeline = NewPipeline(PipelineDeps{
		Geometry: f.geometry,
		Planner:  NewSearchPlanner(f.catalog, logger, nil),
		Filter:   NewIntersectionFilter(logger, nil),
		Grouper:  NewCycleGrouper(logger, nil),
		Engine:   NewDownloadEngine(engineDeps, DownloadOptions{}),
		Logger:   logger,
	}, testPlan())
	return f
}

func listDirs(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}

func TestPipelineStopsWhenNoItemsFound(t *testing.T) {
	f := newPipelineFixture(t, nil, nil)
	out := filepath.Join(t.TempDir(), "tiles")

	f.geometry.EXPECT().Load(mock.Anything, "aoi.geojson").Return(squareAOI(0, 0, 3, 3), nil)
	f.catalog.EXPECT().Search(mock.Anything, mock.Anything).Return(nil, nil)

	report, err := f.pipeline.Run(context.Background(), RunRequest{
		AOIPath:    "aoi.geojson",
		Range:      mustRange(t, "2021-01-01", "2021-01-24"),
		OutputRoot: out,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoItems, report.Outcome)
	assert.Empty(t, report.Cycles)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, [4]float64{0, 0, 3, 3}, report.BBox)
	assert.Empty(t, listDirs(t, out))
}

func TestPipelineAbortsOnGeometryFailure(t *testing.T) {
	f := newPipelineFixture(t, nil, nil)
	loadErr := &domain.GeometryLoadError{Path: "missing.geojson", Err: os.ErrNotExist}
	f.geometry.EXPECT().Load(mock.Anything, "missing.geojson").Return(domain.AreaOfInterest{}, loadErr)

	_, err := f.pipeline.Run(context.Background(), RunRequest{
		AOIPath:    "missing.geojson",
		Range:      mustRange(t, "2021-01-01", "2021-01-24"),
		OutputRoot: t.TempDir(),
	})

	var geometryErr *domain.GeometryLoadError
	require.ErrorAs(t, err, &geometryErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestPipelineStopsWhenNothingIntersects(t *testing.T) {
	f := newPipelineFixture(t, nil, nil)
	out := t.TempDir()

	f.geometry.EXPECT().Load(mock.Anything, mock.Anything).Return(squareAOI(10, 10, 11, 11), nil)
	// Footprint of testItem is (1,1)-(2,2), inside the bbox query but far from the AOI.
	f.catalog.EXPECT().Search(mock.Anything, mock.Anything).
		Return([]domain.CatalogItem{testItem("far", "2021-01-03T00:00:00Z", "https://blob.example", domain.BandVV)}, nil)

	report, err := f.pipeline.Run(context.Background(), RunRequest{
		AOIPath:    "aoi.geojson",
		Range:      mustRange(t, "2021-01-01", "2021-01-24"),
		OutputRoot: out,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoIntersectingItems, report.Outcome)
	assert.Equal(t, 1, report.ItemsFound)
	assert.Equal(t, 0, report.ItemsIntersecting)
	assert.Empty(t, listDirs(t, out))
}

func TestPipelineDownloadsEveryCycle(t *testing.T) {
	server := newAssetServer(t, 0)
	f := newPipelineFixture(t, passthroughSigner(t), server)
	out := t.TempDir()

	f.geometry.EXPECT().Load(mock.Anything, mock.Anything).Return(squareAOI(0, 0, 3, 3), nil)
	f.catalog.EXPECT().Search(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, q ports.SearchQuery) ([]domain.CatalogItem, error) {
		assert.Equal(t, [4]float64{0, 0, 3, 3}, q.BBox)
		return []domain.CatalogItem{
			testItem("S1A_early", "2021-01-02T05:30:00Z", server.URL+"/assets", domain.BandVV, domain.BandVH),
			testItem("S1A_late", "2021-01-20T05:30:00Z", server.URL+"/assets", domain.BandVV, domain.BandVH),
		}, nil
	}).Once()

	report, err := f.pipeline.Run(context.Background(), RunRequest{
		AOIPath:    "aoi.geojson",
		Range:      mustRange(t, "2021-01-01", "2021-01-24"),
		OutputRoot: out,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, report.Outcome)
	assert.Equal(t, 2, report.ItemsIntersecting)
	require.Len(t, report.Cycles, 2)
	assert.Equal(t, "2021-01-01/2021-01-12", report.Cycles[0].Cycle.String())
	assert.Equal(t, "2021-01-13/2021-01-24", report.Cycles[1].Cycle.String())

	succeeded, failed := report.Totals()
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 0, failed)
	assert.Equal(t, []string{"2021-01-01_cycle", "2021-01-13_cycle"}, listDirs(t, out))
	assert.FileExists(t, filepath.Join(out, "2021-01-01_cycle", "vv", "S1A_early_vv.tif"))
	assert.FileExists(t, filepath.Join(out, "2021-01-13_cycle", "vh", "S1A_late_vh.tif"))
}

func TestPipelineDownloadStopsOnCancelledContext(t *testing.T) {
	f := newPipelineFixture(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.pipeline.Download(ctx, Prepared{
		Request: RunRequest{OutputRoot: t.TempDir()},
		Cycles:  []domain.Cycle{{Range: mustRange(t, "2021-01-01", "2021-01-12")}},
		Report:  RunReport{Outcome: OutcomeCompleted},
	})

	assert.Empty(t, report.Cycles)
}

func TestPipelineTagsEveryPhaseLogWithRunID(t *testing.T) {
	server := newAssetServer(t, 0)
	f := newPipelineFixture(t, passthroughSigner(t), server)

	f.geometry.EXPECT().Load(mock.Anything, mock.Anything).Return(squareAOI(0, 0, 3, 3), nil)
	f.catalog.EXPECT().Search(mock.Anything, mock.Anything).Return([]domain.CatalogItem{
		testItem("S1A_tagged", "2021-01-02T05:30:00Z", server.URL+"/assets", domain.BandVV),
		{ID: "S1A_undated", Collection: "sentinel-1-grd", Datetime: "not-a-date", Footprint: squareFootprint(1, 1, 2, 2)},
	}, nil)

	var progress []SearchProgress
	report, err := f.pipeline.Run(context.Background(), RunRequest{
		AOIPath:          "aoi.geojson",
		Range:            mustRange(t, "2021-01-01", "2021-01-24"),
		OutputRoot:       t.TempDir(),
		OnSearchProgress: func(p SearchProgress) { progress = append(progress, p) },
	})
	require.NoError(t, err)
	require.Len(t, progress, 1)

	for _, message := range []string{"catalog chunk searched", "skipping item with unparseable datetime", "downloaded", "download summary", "run finished"} {
		require.Equal(t, 1, f.logs.FilterMessage(message).Len(), message)
	}
	for _, entry := range f.logs.All() {
		assert.Equal(t, report.RunID, entry.ContextMap()["run_id"], entry.Message)
	}
}
