package application

import "github.com/bnema/sentinel-tiles-cli/internal/domain"

// ItemAccumulator collects search hits across chunk queries. It is append-only
// and keeps duplicates returned by overlapping queries.
type ItemAccumulator struct {
	items []domain.CatalogItem
}

func NewItemAccumulator() *ItemAccumulator {
	return &ItemAccumulator{}
}

func (a *ItemAccumulator) Add(items ...domain.CatalogItem) {
	a.items = append(a.items, items...)
}

func (a *ItemAccumulator) Items() []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(a.items))
	copy(out, a.items)
	return out
}

func (a *ItemAccumulator) Len() int {
	return len(a.items)
}
