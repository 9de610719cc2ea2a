// Package export serializes a location set for download. Output is a pure
// serialization of the current records; nothing is re-validated.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/rotisserie/eris"

	"umkm-map/internal/models"
	"umkm-map/internal/validate"
)

// Columns is the export column order. ColCluster is appended when the set
// carries cluster assignments.
var Columns = []string{
	validate.ColName,
	validate.ColType,
	validate.ColLatitude,
	validate.ColLongitude,
	validate.ColDescription,
}

// Header returns the export header for set.
func Header(set *models.LocationSet) []string {
	h := append([]string{}, Columns...)
	if set.HasClusters() {
		h = append(h, validate.ColCluster)
	}
	return h
}

// FormatFloat renders a coordinate in its shortest round-trip form.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Row renders one record in export column order.
func Row(r models.LocationRecord, withCluster bool) []string {
	row := []string{r.Name, r.Category, FormatFloat(r.Loc.Lat), FormatFloat(r.Loc.Lon), r.Description}
	if withCluster {
		cell := ""
		if id, ok := r.ClusterID(); ok {
			cell = strconv.Itoa(id)
		}
		row = append(row, cell)
	}
	return row
}

// EncodeCSV writes set as UTF-8 CSV with a header row.
func EncodeCSV(set *models.LocationSet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	withCluster := set.HasClusters()
	if err := w.Write(Header(set)); err != nil {
		return nil, eris.Wrap(err, "export: write csv header")
	}
	for _, r := range set.Records() {
		if err := w.Write(Row(r, withCluster)); err != nil {
			return nil, eris.Wrap(err, "export: write csv row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: flush csv")
	}
	return buf.Bytes(), nil
}
