package application

import (
	"context"
	"fmt"
	"os"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const outputRootMode = 0o755

type Outcome string

const (
	OutcomeCompleted           Outcome = "completed"
	OutcomeNoItems             Outcome = "no_items"
	OutcomeNoIntersectingItems Outcome = "no_intersecting_items"
)

type RunRequest struct {
	AOIPath    string
	Range      domain.DateRange
	OutputRoot string
	// OnSearchProgress is optional and called before each catalog chunk query.
	OnSearchProgress func(SearchProgress)
}

type RunReport struct {
	RunID              string                `json:"run_id"`
	BBox               [4]float64            `json:"bbox"`
	Range              string                `json:"range"`
	Search             SearchReport          `json:"search"`
	ItemsFound         int                   `json:"items_found"`
	ItemsIntersecting  int                   `json:"items_intersecting"`
	IntersectionErrors int                   `json:"intersection_errors"`
	GroupingErrors     int                   `json:"grouping_errors"`
	Cycles             []domain.CycleSummary `json:"cycles"`
	Outcome            Outcome               `json:"outcome"`
}

func (r RunReport) Totals() (succeeded, failed int) {
	for _, cycle := range r.Cycles {
		succeeded += cycle.Succeeded()
		failed += cycle.Failed
	}
	return succeeded, failed
}

// Prepared is the output of the catalog phase: the AOI and the non-empty cycles
// waiting to be downloaded.
type Prepared struct {
	Request RunRequest
	AOI     domain.AreaOfInterest
	Cycles  []domain.Cycle
	Report  RunReport
}

type Pipeline struct {
	geometry ports.GeometryProvider
	planner  *SearchPlanner
	filter   *IntersectionFilter
	grouper  *CycleGrouper
	engine   *DownloadEngine
	plan     SearchPlan
	logger   *zap.Logger
}

type PipelineDeps struct {
	Geometry ports.GeometryProvider
	Planner  *SearchPlanner
	Filter   *IntersectionFilter
	Grouper  *CycleGrouper
	Engine   *DownloadEngine
	Logger   *zap.Logger
}

// NewPipeline wires the acquisition phases. plan supplies everything but the
// bbox, which comes from the loaded AOI.
func NewPipeline(deps PipelineDeps, plan SearchPlan) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		geometry: deps.Geometry,
		planner:  deps.Planner,
		filter:   deps.Filter,
		grouper:  deps.Grouper,
		engine:   deps.Engine,
		plan:     plan,
		logger:   logger,
	}
}

// Run loads the AOI, searches the catalog, filters and groups the hits and
// downloads every non-empty cycle in order. Only an AOI load failure or an
// unusable output root return an error.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (RunReport, error) {
	prepared, err := p.Prepare(ctx, req)
	if err != nil {
		return RunReport{}, err
	}
	return p.Download(ctx, prepared), nil
}

func (p *Pipeline) Prepare(ctx context.Context, req RunRequest) (Prepared, error) {
	report := RunReport{
		RunID:   uuid.NewString(),
		Range:   req.Range.String(),
		Outcome: OutcomeCompleted,
	}
	runField := zap.String("run_id", report.RunID)
	logger := p.logger.With(runField)

	aoi, err := p.geometry.Load(ctx, req.AOIPath)
	if err != nil {
		logger.Error("load aoi", zap.Error(err))
		return Prepared{}, err
	}
	report.BBox = aoi.BBox()
	logger.Info("loaded aoi geometry", zap.Float64s("bbox", report.BBox[:]))

	if err := os.MkdirAll(req.OutputRoot, outputRootMode); err != nil {
		return Prepared{}, fmt.Errorf("create output root: %w", err)
	}

	plan := p.plan
	plan.BBox = aoi.BBox()
	acc := NewItemAccumulator()
	plan.Progress = req.OnSearchProgress
	report.Search = p.planner.withFields(runField).Plan(ctx, req.Range, plan, acc)
	items := acc.Items()
	report.ItemsFound = len(items)

	prepared := Prepared{Request: req, AOI: aoi}
	if len(items) == 0 {
		logger.Info("no items found, exiting")
		report.Outcome = OutcomeNoItems
		prepared.Report = report
		return prepared, nil
	}
	logger.Info("items found in bbox", zap.Int("items", len(items)))

	filtered, filterErrs := p.filter.withFields(runField).Filter(items, aoi)
	report.ItemsIntersecting = len(filtered)
	report.IntersectionErrors = len(filterErrs)
	logger.Info("items intersecting aoi", zap.Int("items", len(filtered)))
	if len(filtered) == 0 {
		logger.Info("no intersecting items found, exiting")
		report.Outcome = OutcomeNoIntersectingItems
		prepared.Report = report
		return prepared, nil
	}

	cycles, groupErrs := p.grouper.withFields(runField).Group(filtered, req.Range)
	report.GroupingErrors = len(groupErrs)
	logger.Info("grouped items into cycles", zap.Int("cycles", len(cycles)))

	prepared.Cycles = cycles
	prepared.Report = report
	return prepared, nil
}

// Download processes prepared cycles strictly one after another.
func (p *Pipeline) Download(ctx context.Context, prepared Prepared) RunReport {
	report := prepared.Report
	logger := p.logger.With(zap.String("run_id", report.RunID))
	engine := p.engine.withFields(zap.String("run_id", report.RunID))
	for _, cycle := range prepared.Cycles {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled before all cycles were processed", zap.Error(err))
			break
		}
		report.Cycles = append(report.Cycles, engine.RunCycle(ctx, prepared.Request.OutputRoot, cycle))
	}

	succeeded, failed := report.Totals()
	logger.Info("run finished",
		zap.String("outcome", string(report.Outcome)),
		zap.Int("cycles", len(report.Cycles)),
		zap.Int("successful", succeeded),
		zap.Int("failed", failed),
	)
	return report
}
