package validate

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"umkm-map/internal/models"
)

// CoordinateText is a coordinate as typed by the user. JSON input may carry
// it as a string or a number.
type CoordinateText string

func (c *CoordinateText) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*c = CoordinateText(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Errorf("coordinate must be a string or number, got %s", b)
	}
	*c = CoordinateText(s)
	return nil
}

// ManualEntry is a single location typed in by the user.
type ManualEntry struct {
	Name        string         `json:"name" form:"name"`
	Type        string         `json:"type" form:"type"`
	Latitude    CoordinateText `json:"latitude" form:"latitude"`
	Longitude   CoordinateText `json:"longitude" form:"longitude"`
	Description string         `json:"description" form:"description"`
}

// ManualEntryError reports the field of a manual entry that failed to parse.
type ManualEntryError struct {
	Field string
	Value string
}

func (e *ManualEntryError) Error() string {
	return fmt.Sprintf("%s: %q is not a decimal number", e.Field, e.Value)
}

func (e *ManualEntryError) Unwrap() error { return ErrNotNumeric }

// ParseManualEntry applies the coordinate coercion rule to one entry.
func ParseManualEntry(e ManualEntry) (models.LocationRecord, error) {
	lat, err := ParseCoordinate(string(e.Latitude))
	if err != nil {
		return models.LocationRecord{}, &ManualEntryError{Field: ColLatitude, Value: string(e.Latitude)}
	}
	lon, err := ParseCoordinate(string(e.Longitude))
	if err != nil {
		return models.LocationRecord{}, &ManualEntryError{Field: ColLongitude, Value: string(e.Longitude)}
	}
	return models.LocationRecord{
		Name:        e.Name,
		Category:    e.Type,
		Loc:         models.Coordinate{Lat: lat, Lon: lon},
		Description: e.Description,
	}, nil
}
