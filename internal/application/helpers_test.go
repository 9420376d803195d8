package application

import (
	"fmt"
	"testing"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func mustRange(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func squareFootprint(minX, minY, maxX, maxY float64) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"Polygon","coordinates":[[[%[1]g,%[2]g],[%[3]g,%[2]g],[%[3]g,%[4]g],[%[1]g,%[4]g],[%[1]g,%[2]g]]]}`,
		minX, minY, maxX, maxY,
	))
}

func testItem(id, datetime string, assetBase string, bands ...domain.Band) domain.CatalogItem {
	assets := map[domain.Band]domain.Asset{}
	for _, band := range bands {
		assets[band] = domain.Asset{Href: fmt.Sprintf("%s/%s/%s.tif", assetBase, id, band)}
	}
	return domain.CatalogItem{
		ID:         id,
		Collection: "sentinel-1-grd",
		Datetime:   datetime,
		Assets:     assets,
		Footprint:  squareFootprint(1, 1, 2, 2),
	}
}

func squareAOI(minX, minY, maxX, maxY float64) domain.AreaOfInterest {
	mp := orb.MultiPolygon{{orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}}
	return domain.AreaOfInterest{Geometry: mp, Bound: mp.Bound()}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}
