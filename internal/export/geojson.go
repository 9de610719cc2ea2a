package export

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"umkm-map/internal/models"
)

// FeatureCollection converts set into GeoJSON point features. Feature ids
// are the record positions.
func FeatureCollection(set *models.LocationSet) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, set.Len())}
	for i, r := range set.Records() {
		props := map[string]interface{}{
			"name":        r.Name,
			"type":        r.Category,
			"description": r.Description,
		}
		if id, ok := r.ClusterID(); ok {
			props["cluster"] = id
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.Itoa(i),
			Geometry:   geom.NewPointFlat(geom.XY, []float64{r.Loc.Lon, r.Loc.Lat}),
			Properties: props,
		})
	}
	return fc
}

// EncodeGeoJSON returns set as a GeoJSON FeatureCollection document.
func EncodeGeoJSON(set *models.LocationSet) ([]byte, error) {
	data, err := json.Marshal(FeatureCollection(set))
	if err != nil {
		return nil, eris.Wrap(err, "export: encode geojson")
	}
	return data, nil
}
