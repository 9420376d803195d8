package application

import (
	"sort"
	"time"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/metrics"
	"go.uber.org/zap"
)

type CycleGrouper struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewCycleGrouper(logger *zap.Logger, m *metrics.Metrics) *CycleGrouper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &CycleGrouper{logger: logger, metrics: m}
}

func (g *CycleGrouper) withFields(fields ...zap.Field) *CycleGrouper {
	scoped := *g
	scoped.logger = g.logger.With(fields...)
	return &scoped
}

// Group assigns items to 12-day cycles anchored at r.Start. Only cycles with at
// least one item are returned, in chronological order. Items whose datetime
// cannot be parsed are left out and returned as errors.
func (g *CycleGrouper) Group(items []domain.CatalogItem, r domain.DateRange) ([]domain.Cycle, []error) {
	byDate := map[time.Time][]domain.CatalogItem{}
	var failures []error
	for _, item := range items {
		acquired, err := item.AcquisitionDate()
		if err != nil {
			failures = append(failures, err)
			g.logger.Warn("skipping item with unparseable datetime", zap.Error(err))
			continue
		}
		byDate[acquired] = append(byDate[acquired], item)
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var cycles []domain.Cycle
	grouped := 0
	for _, window := range domain.CycleWindows(r) {
		cycle := domain.Cycle{Range: window}
		for _, d := range dates {
			if window.Contains(d) {
				cycle.Items = append(cycle.Items, byDate[d]...)
			}
		}
		if len(cycle.Items) == 0 {
			g.logger.Debug("no items in cycle", zap.String("cycle", window.String()))
			continue
		}
		grouped += len(cycle.Items)
		cycles = append(cycles, cycle)
	}

	g.metrics.Items.WithLabelValues("grouped").Add(float64(grouped))
	return cycles, failures
}
