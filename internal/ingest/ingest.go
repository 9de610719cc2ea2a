// Package ingest turns input sources (CSV or XLSX uploads and the built-in
// sample) into validated location sets. Every source goes through
// validate.Validate.
package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"umkm-map/internal/excel"
	"umkm-map/internal/models"
	"umkm-map/internal/sample"
	"umkm-map/internal/validate"
)

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = eris.New("unsupported file format: use .csv or .xlsx")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses a header row followed by data rows. Header cells are trimmed;
// data cells are kept as written. Rows may have fewer or more fields than the
// header.
func ReadCSV(r io.Reader) ([]string, []validate.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, eris.Wrap(err, "csv: read input")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // allow variable fields

	var header []string
	var rows []validate.Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}
		if header == nil {
			header = make([]string, len(record))
			for i, field := range record {
				header[i] = strings.TrimSpace(field)
			}
			continue
		}

		row := make(validate.Row, len(header))
		for i, col := range header {
			if _, seen := row[col]; seen {
				continue
			}
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// Load validates an uploaded file, choosing the parser by extension.
func Load(filename string, r io.Reader) (*models.LocationSet, error) {
	var (
		header []string
		rows   []validate.Row
		err    error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		header, rows, err = ReadCSV(r)
	case ".xlsx":
		header, rows, err = excel.ReadRows(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return validate.Validate(header, rows)
}

// Sample returns the built-in location set.
func Sample() (*models.LocationSet, error) {
	rows, err := sample.Rows()
	if err != nil {
		return nil, err
	}
	return validate.Validate(sample.Header, rows)
}

// Template returns a CSV with the input header and one example row.
func Template() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{
		sample.Header,
		{"Warung Maju", models.CategoryBusiness, "-6.914744", "107.609810", "Warung dekat kampus A"},
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, eris.Wrap(err, "csv: write template")
	}
	return buf.Bytes(), nil
}
