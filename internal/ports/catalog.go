package ports

import (
	"context"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
)

type SearchQuery struct {
	Collection string
	BBox       [4]float64
	Range      domain.DateRange
	// Filters are equality constraints on item properties.
	Filters map[string]string
	Limit   int
}

type CatalogSearcher interface {
	Search(ctx context.Context, query SearchQuery) ([]domain.CatalogItem, error)
}
