package ports

import (
	"context"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
)

// GeometryProvider loads an AOI vector file into EPSG:4326. Failures are
// reported as *domain.GeometryLoadError.
type GeometryProvider interface {
	Load(ctx context.Context, path string) (domain.AreaOfInterest, error)
}
