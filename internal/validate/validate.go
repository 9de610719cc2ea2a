// Package validate checks raw tabular input against the location schema and
// coerces it into a models.LocationSet.
package validate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"umkm-map/internal/models"
)

// Column names of the location schema.
const (
	ColName        = "name"
	ColType        = "type"
	ColLatitude    = "latitude"
	ColLongitude   = "longitude"
	ColDescription = "description"
	ColCluster     = "cluster"
)

// RequiredColumns must all be present in the header of any input.
var RequiredColumns = []string{ColName, ColType, ColLatitude, ColLongitude}

// ErrNotNumeric is returned when latitude or longitude cannot be coerced.
var ErrNotNumeric = eris.New("latitude/longitude must be numeric")

// Row maps a column name to its raw cell value.
type Row map[string]string

// SchemaError lists required columns absent from the input, sorted.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// MissingColumns returns the required columns not in header, sorted.
func MissingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

// Validate builds a LocationSet from rows. The header is checked first so an
// input with no data rows is still rejected when columns are missing.
// Coercion is all-or-nothing: one bad coordinate fails the whole input.
func Validate(header []string, rows []Row) (*models.LocationSet, error) {
	if missing := MissingColumns(header); len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	records := make([]models.LocationRecord, 0, len(rows))
	for _, row := range rows {
		lat, err := ParseCoordinate(row[ColLatitude])
		if err != nil {
			return nil, ErrNotNumeric
		}
		lon, err := ParseCoordinate(row[ColLongitude])
		if err != nil {
			return nil, ErrNotNumeric
		}
		records = append(records, models.LocationRecord{
			Name:        row[ColName],
			Category:    row[ColType],
			Loc:         models.Coordinate{Lat: lat, Lon: lon},
			Description: row[ColDescription],
		})
	}
	return models.NewLocationSet(records...), nil
}

// ParseCoordinate parses a decimal degree value. Empty and non-finite values
// are rejected.
func ParseCoordinate(val string) (float64, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, eris.New("empty")
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse %q", val)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Errorf("non-finite value %q", val)
	}
	return f, nil
}
