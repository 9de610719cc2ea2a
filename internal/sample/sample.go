// Package sample holds the built-in location list shown before any upload.
package sample

import (
	_ "embed"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"umkm-map/internal/validate"
)

//go:embed locations.yaml
var locationsYAML []byte

type entry struct {
	Name        string  `yaml:"name"`
	Type        string  `yaml:"type"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	Description string  `yaml:"description"`
}

// Header is the column set of the sample rows.
var Header = []string{
	validate.ColName, validate.ColType, validate.ColLatitude, validate.ColLongitude, validate.ColDescription,
}

// Rows returns the sample as raw rows so it takes the same validation path
// as uploads.
func Rows() ([]validate.Row, error) {
	var entries []entry
	if err := yaml.Unmarshal(locationsYAML, &entries); err != nil {
		return nil, eris.Wrap(err, "sample: decode locations")
	}
	rows := make([]validate.Row, len(entries))
	for i, e := range entries {
		rows[i] = validate.Row{
			validate.ColName:        e.Name,
			validate.ColType:        e.Type,
			validate.ColLatitude:    strconv.FormatFloat(e.Latitude, 'f', -1, 64),
			validate.ColLongitude:   strconv.FormatFloat(e.Longitude, 'f', -1, 64),
			validate.ColDescription: e.Description,
		}
	}
	return rows, nil
}
