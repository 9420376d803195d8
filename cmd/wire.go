package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/bnema/sentinel-tiles-cli/internal/adapters/catalog/stac"
	"github.com/bnema/sentinel-tiles-cli/internal/adapters/geometry/geojson"
	manifesttoml "github.com/bnema/sentinel-tiles-cli/internal/adapters/manifest/toml"
	"github.com/bnema/sentinel-tiles-cli/internal/adapters/render/summary"
	"github.com/bnema/sentinel-tiles-cli/internal/adapters/signing/planetary"
	"github.com/bnema/sentinel-tiles-cli/internal/application"
	"github.com/bnema/sentinel-tiles-cli/internal/config"
	"github.com/bnema/sentinel-tiles-cli/internal/logging"
	"github.com/bnema/sentinel-tiles-cli/internal/metrics"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	cfg             config.Config
	httpClient      *http.Client
	summaryRenderer func(application.RunReport, summary.RenderOptions) string
}

// runtime holds the per-invocation graph; the logger writes to the command's
// stderr so it is built at execution time.
type runtime struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	pipeline *application.Pipeline
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return &app{
		cfg:             cfg,
		httpClient:      http.DefaultClient,
		summaryRenderer: summary.Render,
	}, nil
}

func (a *app) newRuntime(logOutput io.Writer) (*runtime, error) {
	logger, err := logging.New(logging.Config{Level: a.cfg.Log.Level, Format: a.cfg.Log.Format}, logOutput)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	m := metrics.New()

	catalog, err := stac.NewClient(stac.Options{
		BaseURL:           a.cfg.Catalog.URL,
		HTTPClient:        a.httpClient,
		RequestTimeout:    a.cfg.Catalog.RequestTimeout,
		RequestsPerSecond: a.cfg.Catalog.RequestsPerSecond,
		Logger:            logger.Named("stac"),
	})
	if err != nil {
		return nil, fmt.Errorf("wire catalog client: %w", err)
	}

	engine := application.NewDownloadEngine(application.DownloadEngineDeps{
		Signer:     planetary.NewSigner(a.cfg.SigningURL, a.httpClient),
		HTTPClient: a.httpClient,
		Manifest:   manifesttoml.NewWriter(),
		Logger:     logger.Named("download"),
		Metrics:    m,
	}, application.DownloadOptions{
		Concurrency: a.cfg.Download.Concurrency,
		Timeout:     a.cfg.Download.Timeout,
		MinBytes:    a.cfg.Download.MinBytes,
		BufferBytes: a.cfg.Download.BufferBytes,
		Bands:       a.cfg.Download.Bands,
	})

	pipeline := application.NewPipeline(application.PipelineDeps{
		Geometry: geojson.Provider{},
		Planner:  application.NewSearchPlanner(catalog, logger.Named("search"), m),
		Filter:   application.NewIntersectionFilter(logger.Named("filter"), m),
		Grouper:  application.NewCycleGrouper(logger.Named("group"), m),
		Engine:   engine,
		Logger:   logger,
	}, a.searchPlan())

	return &runtime{logger: logger, metrics: m, pipeline: pipeline}, nil
}

func (a *app) searchPlan() application.SearchPlan {
	return application.SearchPlan{
		Collection: a.cfg.Catalog.Collection,
		Filters: map[string]string{
			"sat:orbit_state":     a.cfg.Catalog.OrbitState,
			"sar:instrument_mode": a.cfg.Catalog.InstrumentMode,
		},
		Limit:            a.cfg.Catalog.Limit,
		InitialChunkDays: a.cfg.Search.ChunkDays,
		MinChunkDays:     a.cfg.Search.MinChunkDays,
	}
}
