// Package spatial computes map framing data for a location set.
package spatial

import (
	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"

	"umkm-map/internal/models"
)

// GeohashPrecision is the key length attached to records (~5 m cells).
const GeohashPrecision = 9

// Rect is a lat/lng bounding box in degrees.
type Rect struct {
	MinLat float64           `json:"min_latitude"`
	MinLon float64           `json:"min_longitude"`
	MaxLat float64           `json:"max_latitude"`
	MaxLon float64           `json:"max_longitude"`
	Center models.Coordinate `json:"center"`
}

// Bounds returns the smallest rectangle holding every record of set. It
// reports false for an empty set.
func Bounds(set *models.LocationSet) (Rect, bool) {
	if set.Len() == 0 {
		return Rect{}, false
	}

	var rect s2.Rect
	for i, c := range set.Coordinates() {
		ll := s2.LatLngFromDegrees(c.Lat, c.Lon)
		if i == 0 {
			rect = s2.RectFromLatLng(ll)
			continue
		}
		rect = rect.AddPoint(ll)
	}

	lo, hi, center := rect.Lo(), rect.Hi(), rect.Center()
	return Rect{
		MinLat: lo.Lat.Degrees(),
		MinLon: lo.Lng.Degrees(),
		MaxLat: hi.Lat.Degrees(),
		MaxLon: hi.Lng.Degrees(),
		Center: models.Coordinate{Lat: center.Lat.Degrees(), Lon: center.Lng.Degrees()},
	}, true
}

// Geohash returns the geohash of a point truncated to GeohashPrecision.
func Geohash(lat, lon float64) string {
	h := geohash.Encode(lat, lon)
	if len(h) > GeohashPrecision {
		h = h[:GeohashPrecision]
	}
	return h
}
