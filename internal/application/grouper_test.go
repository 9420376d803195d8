package application

import (
	"testing"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemIDs(items []domain.CatalogItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestGroupAssignsItemsToTwelveDayCycles(t *testing.T) {
	items := []domain.CatalogItem{
		{ID: "jan13", Datetime: "2021-01-13T00:10:00.000000Z"},
		{ID: "jan12", Datetime: "2021-01-12T23:59:59.999999Z"},
		{ID: "jan01", Datetime: "2021-01-01T12:00:00Z"},
		{ID: "jan12-b", Datetime: "2021-01-12T01:00:00Z"},
	}

	cycles, failures := NewCycleGrouper(nil, nil).Group(items, mustRange(t, "2021-01-01", "2021-01-24"))
	require.Empty(t, failures)
	require.Len(t, cycles, 2)

	assert.Equal(t, "2021-01-01/2021-01-12", cycles[0].Range.String())
	assert.Equal(t, []string{"jan01", "jan12", "jan12-b"}, itemIDs(cycles[0].Items))
	assert.Equal(t, "2021-01-13/2021-01-24", cycles[1].Range.String())
	assert.Equal(t, []string{"jan13"}, itemIDs(cycles[1].Items))
}

func TestGroupSkipsEmptyCycles(t *testing.T) {
	items := []domain.CatalogItem{
		{ID: "feb20", Datetime: "2021-02-20T00:00:00Z"},
	}

	cycles, _ := NewCycleGrouper(nil, nil).Group(items, mustRange(t, "2021-01-01", "2021-03-01"))
	require.Len(t, cycles, 1)
	assert.Equal(t, "2021-02-18/2021-03-01", cycles[0].Range.String())
}

func TestGroupKeepsLastCycleUnclamped(t *testing.T) {
	items := []domain.CatalogItem{
		{ID: "jan15", Datetime: "2021-01-15T00:00:00Z"},
	}

	cycles, _ := NewCycleGrouper(nil, nil).Group(items, mustRange(t, "2021-01-01", "2021-01-15"))
	require.Len(t, cycles, 1)
	assert.Equal(t, "2021-01-13/2021-01-24", cycles[0].Range.String())
}

func TestGroupAssignsEachItemToExactlyOneCycle(t *testing.T) {
	r := mustRange(t, "2021-01-01", "2021-04-30")
	var items []domain.CatalogItem
	for d := r.Start; !d.After(r.End); d = domain.AddDays(d, 1) {
		items = append(items, domain.CatalogItem{ID: d.Format(domain.DateLayout), Datetime: d.Format("2006-01-02") + "T05:00:00Z"})
	}

	cycles, failures := NewCycleGrouper(nil, nil).Group(items, r)
	require.Empty(t, failures)

	seen := map[string]int{}
	for i, cycle := range cycles {
		if i > 0 {
			assert.Equal(t, domain.AddDays(cycles[i-1].Range.End, 1), cycle.Range.Start)
		}
		for _, item := range cycle.Items {
			seen[item.ID]++
		}
	}
	assert.Len(t, seen, len(items))
	for id, count := range seen {
		assert.Equal(t, 1, count, id)
	}
}

func TestGroupReportsUnparseableDatetimes(t *testing.T) {
	logger, logs := observedLogger()
	items := []domain.CatalogItem{
		{ID: "ok", Datetime: "2021-01-02T00:00:00Z"},
		{ID: "bad", Datetime: "02/01/2021"},
	}

	cycles, failures := NewCycleGrouper(logger, nil).Group(items, mustRange(t, "2021-01-01", "2021-01-12"))
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"ok"}, itemIDs(cycles[0].Items))
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "item bad")
	assert.Equal(t, 1, logs.FilterMessage("skipping item with unparseable datetime").Len())
}
