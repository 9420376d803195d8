package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type Band string

const (
	BandVV Band = "vv"
	BandVH Band = "vh"
)

// DefaultBands are the polarisations downloaded for every item, in order.
var DefaultBands = []Band{BandVV, BandVH}

type Asset struct {
	Href      string
	MediaType string
}

// CatalogItem is a catalog search hit. Footprint holds the item's GeoJSON
// geometry as returned by the catalog; it is decoded lazily by the intersection
// filter so that one malformed footprint cannot fail a whole search page.
type CatalogItem struct {
	ID         string
	Collection string
	Datetime   string
	Assets     map[Band]Asset
	Footprint  json.RawMessage
}

// AcquisitionDate parses the item's datetime property to its UTC calendar date.
func (i CatalogItem) AcquisitionDate() (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, i.Datetime)
	if err != nil {
		return time.Time{}, fmt.Errorf("item %s: parse datetime %q: %w", i.ID, i.Datetime, err)
	}

	return DateOf(parsed), nil
}

func (i CatalogItem) Asset(band Band) (Asset, bool) {
	asset, ok := i.Assets[band]
	if !ok || asset.Href == "" {
		return Asset{}, false
	}
	return asset, true
}
