package excel

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"umkm-map/internal/export"
	"umkm-map/internal/models"
	"umkm-map/internal/validate"
)

// Sheet names used in generated workbooks.
const (
	LocationsSheet = "Lokasi"
	NearestSheet   = "Jarak"
)

// ReadRows reads the first sheet of an XLSX workbook. The first row is the
// header and is trimmed; data cells are kept as written. Short data rows are
// padded with empty cells and blank rows are skipped.
func ReadRows(r io.Reader) ([]string, []validate.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, eris.Wrap(err, "excel: open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, eris.New("excel: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, eris.Wrapf(err, "excel: read sheet %q", sheets[0])
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var out []validate.Row
	for _, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		row := make(validate.Row, len(header))
		for i, col := range header {
			if _, seen := row[col]; seen {
				continue
			}
			if i < len(cells) {
				row[col] = cells[i]
			} else {
				row[col] = ""
			}
		}
		out = append(out, row)
	}
	return header, out, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteLocations writes set to w as a workbook with the export columns.
func WriteLocations(w io.Writer, set *models.LocationSet) error {
	header := export.Header(set)
	withCluster := set.HasClusters()

	rows := make([][]interface{}, 0, set.Len())
	for _, r := range set.Records() {
		row := []interface{}{r.Name, r.Category, r.Loc.Lat, r.Loc.Lon, r.Description}
		if withCluster {
			if id, ok := r.ClusterID(); ok {
				row = append(row, id)
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return writeSheet(w, LocationsSheet, header, rows)
}

// WriteNearest writes proximity results to w.
func WriteNearest(w io.Writer, data []models.NearestRow) error {
	headers := []string{
		"Nama Asal", "Jenis Asal", "Lat Asal", "Lon Asal",
		"Nama Tujuan", "Jenis Tujuan", "Lat Tujuan", "Lon Tujuan",
		"Jarak (m)",
	}

	rows := make([][]interface{}, 0, len(data))
	for _, r := range data {
		rows = append(rows, []interface{}{
			r.SourceName, r.SourceCategory, r.SourceLat, r.SourceLon,
			r.TargetName, r.TargetCategory, r.TargetLat, r.TargetLon,
			r.Distance,
		})
	}
	return writeSheet(w, NearestSheet, headers, rows)
}

func writeSheet(w io.Writer, sheetName string, headers []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return eris.Wrap(err, "excel: new sheet")
	}

	// Use Stream Writer for performance
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return eris.Wrap(err, "excel: stream writer")
	}

	head := make([]interface{}, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := sw.SetRow("A1", head); err != nil {
		return eris.Wrap(err, "excel: write header")
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return eris.Wrap(err, "excel: cell name")
		}
		if err := sw.SetRow(cell, row); err != nil {
			return eris.Wrapf(err, "excel: write row %d", i+2)
		}
	}

	if err := sw.Flush(); err != nil {
		return eris.Wrap(err, "excel: flush")
	}

	// Delete default sheet if exists; the written sheet then sits at index 0.
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return eris.Wrap(err, "excel: write workbook")
	}
	return nil
}
