// Package geo holds the exact polygon predicates used to refine bbox-matched
// catalog hits.
package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// ToMultiPolygon normalizes a Polygon or MultiPolygon into a MultiPolygon and
// rejects rings with fewer than three points.
func ToMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	var mp orb.MultiPolygon
	switch geom := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{geom}
	case orb.MultiPolygon:
		mp = geom
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedGeometry)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}

	if len(mp) == 0 {
		return nil, errors.New("empty multipolygon")
	}
	for i, polygon := range mp {
		if len(polygon) == 0 {
			return nil, fmt.Errorf("polygon %d has no rings", i)
		}
		for j, ring := range polygon {
			if len(ring) < 3 {
				return nil, fmt.Errorf("polygon %d ring %d has %d points", i, j, len(ring))
			}
		}
	}

	return mp, nil
}

// Intersects reports whether two multipolygons share at least one point,
// boundaries included. Interiors of holes do not count.
func Intersects(a, b orb.MultiPolygon) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	for _, pa := range a {
		for _, pb := range b {
			if polygonsIntersect(pa, pb) {
				return true
			}
		}
	}

	return false
}

func polygonsIntersect(a, b orb.Polygon) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	for _, ra := range a {
		for _, rb := range b {
			if ringsCross(ra, rb) {
				return true
			}
		}
	}

	// No boundary contact, so one polygon is either fully inside the other or
	// they are disjoint.
	return planar.PolygonContains(b, a[0][0]) || planar.PolygonContains(a, b[0][0])
}

func ringsCross(a, b orb.Ring) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	for i := range a {
		a1, a2 := a[i], a[(i+1)%len(a)]
		for j := range b {
			if segmentsIntersect(a1, a2, b[j], b[(j+1)%len(b)]) {
				return true
			}
		}
	}

	return false
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return p[0] >= min(a[0], b[0]) && p[0] <= max(a[0], b[0]) &&
		p[1] >= min(a[1], b[1]) && p[1] <= max(a[1], b[1])
}
