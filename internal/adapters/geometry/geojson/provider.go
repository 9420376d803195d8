package geojson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/geo"
	"github.com/bnema/sentinel-tiles-cli/internal/ports"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const maxAOIFileBytes = 64 << 20

// Provider loads AOI polygons from GeoJSON documents. Coordinates must already
// be longitude/latitude; documents declaring any other CRS are rejected.
type Provider struct{}

var _ ports.GeometryProvider = Provider{}

type probe struct {
	Type string `json:"type"`
	CRS  *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

func (Provider) Load(ctx context.Context, path string) (domain.AreaOfInterest, error) {
	if err := ctx.Err(); err != nil {
		return domain.AreaOfInterest{}, err
	}

	aoi, err := load(path)
	if err != nil {
		return domain.AreaOfInterest{}, &domain.GeometryLoadError{Path: path, Err: err}
	}

	return aoi, nil
}

func load(path string) (domain.AreaOfInterest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.AreaOfInterest{}, fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > maxAOIFileBytes {
		return domain.AreaOfInterest{}, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), maxAOIFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.AreaOfInterest{}, fmt.Errorf("read file: %w", err)
	}

	geometries, err := decode(data)
	if err != nil {
		return domain.AreaOfInterest{}, err
	}

	union := orb.MultiPolygon{}
	for _, g := range geometries {
		mp, err := geo.ToMultiPolygon(g)
		if err != nil {
			if errors.Is(err, geo.ErrUnsupportedGeometry) {
				continue
			}
			return domain.AreaOfInterest{}, err
		}
		union = append(union, mp...)
	}

	if len(union) == 0 {
		return domain.AreaOfInterest{}, domain.ErrNoGeometry
	}

	return domain.AreaOfInterest{Geometry: union, Bound: union.Bound()}, nil
}

func decode(data []byte) ([]orb.Geometry, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if p.CRS != nil && !isLonLatCRS(p.CRS.Properties.Name) {
		return nil, fmt.Errorf("unsupported crs %q", p.CRS.Properties.Name)
	}

	switch p.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		geometries := make([]orb.Geometry, 0, len(fc.Features))
		for _, feature := range fc.Features {
			if feature.Geometry != nil {
				geometries = append(geometries, feature.Geometry)
			}
		}
		return geometries, nil
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		if feature.Geometry == nil {
			return nil, nil
		}
		return []orb.Geometry{feature.Geometry}, nil
	case "":
		return nil, errors.New("missing geojson type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		return []orb.Geometry{g.Geometry()}, nil
	}
}

func isLonLatCRS(name string) bool {
	upper := strings.ToUpper(name)
	return name == "" || strings.HasSuffix(upper, "CRS84") || strings.HasSuffix(upper, "4326")
}
