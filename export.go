package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"umkm-map/internal/excel"
	"umkm-map/internal/export"
	"umkm-map/internal/grouping"
	"umkm-map/internal/ingest"
	"umkm-map/internal/models"
	"umkm-map/internal/query"
	"umkm-map/internal/view"
)

type exportOptions struct {
	Input    string
	Category string
	Search   string
	Clusters int
	Format   string
	Output   string
}

var exportOpts exportOptions

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a filtered location set as CSV, XLSX or GeoJSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOpts.Clusters != 0 &&
			(exportOpts.Clusters < cfg.Clustering.MinK || exportOpts.Clusters > cfg.Clustering.MaxK) {
			return eris.Errorf("--clusters must be between %d and %d", cfg.Clustering.MinK, cfg.Clustering.MaxK)
		}

		var out io.Writer = cmd.OutOrStdout()
		if exportOpts.Output != "" && exportOpts.Output != "-" {
			f, err := os.Create(exportOpts.Output)
			if err != nil {
				return eris.Wrapf(err, "create %s", exportOpts.Output)
			}
			defer f.Close()
			out = f
		}

		engine := grouping.New(cfg.Clustering.Options())
		return runExport(exportOpts, engine, out)
	},
}

// loadInput reads the input file, or the built-in sample when path is empty.
func loadInput(path string) (*models.LocationSet, error) {
	if path == "" {
		return ingest.Sample()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ingest.Load(filepath.Base(path), f)
}

func runExport(opts exportOptions, c view.Clusterer, w io.Writer) error {
	set, err := loadInput(opts.Input)
	if err != nil {
		return err
	}

	v := view.Build(set, view.Params{
		Category: opts.Category,
		Search:   opts.Search,
		Cluster:  opts.Clusters > 0,
		K:        opts.Clusters,
	}, c)
	for _, warn := range v.Warnings {
		zap.L().Warn("export", zap.String("warning", warn))
	}
	if v.Notice != "" {
		zap.L().Info("export", zap.String("notice", v.Notice))
	}

	var data []byte
	switch opts.Format {
	case "csv":
		data, err = export.EncodeCSV(v.Set)
	case "geojson":
		data, err = export.EncodeGeoJSON(v.Set)
	case "xlsx":
		err = excel.WriteLocations(w, v.Set)
	default:
		return eris.Errorf("unknown format %q (want csv, xlsx or geojson)", opts.Format)
	}
	if err != nil {
		return eris.Wrapf(err, "encode %s", opts.Format)
	}
	if data != nil {
		if _, err := w.Write(data); err != nil {
			return eris.Wrap(err, "write output")
		}
	}

	zap.L().Info("export complete",
		zap.String("format", opts.Format),
		zap.Int("records", v.Set.Len()),
		zap.Bool("clustered", v.Clustered),
	)
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportOpts.Input, "input", "", "CSV or XLSX file to load (default: built-in sample)")
	exportCmd.Flags().StringVar(&exportOpts.Category, "category", query.CategoryAllIndo, "category filter (UMKM, Kampus or Semua)")
	exportCmd.Flags().StringVar(&exportOpts.Search, "search", "", "case-insensitive name filter")
	exportCmd.Flags().IntVar(&exportOpts.Clusters, "clusters", 0, "number of clusters to assign (0 disables clustering)")
	exportCmd.Flags().StringVar(&exportOpts.Format, "format", "csv", "output format: csv, xlsx or geojson")
	exportCmd.Flags().StringVarP(&exportOpts.Output, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
