package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umkm-map/internal/models"
)

func TestBounds(t *testing.T) {
	set := models.NewLocationSet(
		models.LocationRecord{Name: "a", Loc: models.Coordinate{Lat: -2.6773, Lon: 118.8867}},
		models.LocationRecord{Name: "b", Loc: models.Coordinate{Lat: -3.4325, Lon: 119.3430}},
		models.LocationRecord{Name: "c", Loc: models.Coordinate{Lat: -2.6350, Lon: 118.9150}},
	)
	r, ok := Bounds(set)
	require.True(t, ok)
	assert.InDelta(t, -3.4325, r.MinLat, 1e-9)
	assert.InDelta(t, -2.6350, r.MaxLat, 1e-9)
	assert.InDelta(t, 118.8867, r.MinLon, 1e-9)
	assert.InDelta(t, 119.3430, r.MaxLon, 1e-9)
	assert.InDelta(t, (-3.4325-2.6350)/2, r.Center.Lat, 1e-9)
	assert.InDelta(t, (118.8867+119.3430)/2, r.Center.Lon, 1e-9)
}

func TestBounds_SinglePointAndEmpty(t *testing.T) {
	r, ok := Bounds(models.NewLocationSet(models.LocationRecord{Loc: models.Coordinate{Lat: 1, Lon: 2}}))
	require.True(t, ok)
	assert.InDelta(t, 1, r.MinLat, 1e-9)
	assert.InDelta(t, 1, r.MaxLat, 1e-9)
	assert.InDelta(t, 2, r.Center.Lon, 1e-9)

	_, ok = Bounds(models.NewLocationSet())
	assert.False(t, ok)
}

func TestGeohash(t *testing.T) {
	h := Geohash(57.64911, 10.40744)
	assert.Len(t, h, GeohashPrecision)
	assert.Equal(t, "u4pruydqq", h)

	near := Geohash(-2.6773, 118.8867)
	nearer := Geohash(-2.6774, 118.8868)
	assert.Equal(t, near[:5], nearer[:5])
}
