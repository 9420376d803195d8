package domain

import "github.com/paulmach/orb"

// AreaOfInterest is the run's target area in EPSG:4326.
type AreaOfInterest struct {
	Geometry orb.MultiPolygon
	Bound    orb.Bound
}

// BBox returns the bound as [minLon, minLat, maxLon, maxLat].
func (a AreaOfInterest) BBox() [4]float64 {
	return [4]float64{a.Bound.Min.Lon(), a.Bound.Min.Lat(), a.Bound.Max.Lon(), a.Bound.Max.Lat()}
}
