package application

import (
	"errors"
	"fmt"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/geo"
	"github.com/bnema/sentinel-tiles-cli/internal/metrics"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// IntersectionFilter keeps items whose footprint polygon intersects the AOI.
type IntersectionFilter struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewIntersectionFilter(logger *zap.Logger, m *metrics.Metrics) *IntersectionFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &IntersectionFilter{logger: logger, metrics: m}
}

func (f *IntersectionFilter) withFields(fields ...zap.Field) *IntersectionFilter {
	scoped := *f
	scoped.logger = f.logger.With(fields...)
	return &scoped
}

// Filter returns the intersecting items. Items whose footprint cannot be tested
// are dropped and reported as *domain.IntersectionTestError.
func (f *IntersectionFilter) Filter(items []domain.CatalogItem, aoi domain.AreaOfInterest) ([]domain.CatalogItem, []error) {
	kept := make([]domain.CatalogItem, 0, len(items))
	var failures []error

	for _, item := range items {
		ok, err := intersects(item, aoi)
		if err != nil {
			testErr := &domain.IntersectionTestError{ItemID: item.ID, Err: err}
			failures = append(failures, testErr)
			f.logger.Warn("intersection test failed, treating item as non-matching", zap.Error(testErr))
			continue
		}
		if ok {
			kept = append(kept, item)
		}
	}

	f.metrics.Items.WithLabelValues("intersecting").Add(float64(len(kept)))
	return kept, failures
}

func intersects(item domain.CatalogItem, aoi domain.AreaOfInterest) (bool, error) {
	footprint, err := decodeFootprint(item)
	if err != nil {
		return false, err
	}
	return geo.Intersects(aoi.Geometry, footprint), nil
}

func decodeFootprint(item domain.CatalogItem) (orb.MultiPolygon, error) {
	if len(item.Footprint) == 0 || string(item.Footprint) == "null" {
		return nil, errors.New("item has no footprint")
	}

	g, err := geojson.UnmarshalGeometry(item.Footprint)
	if err != nil {
		return nil, fmt.Errorf("decode footprint: %w", err)
	}

	footprint, err := geo.ToMultiPolygon(g.Geometry())
	if err != nil {
		return nil, fmt.Errorf("footprint: %w", err)
	}

	return footprint, nil
}
