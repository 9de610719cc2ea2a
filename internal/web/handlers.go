package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"umkm-map/internal/calculator"
	"umkm-map/internal/excel"
	"umkm-map/internal/export"
	"umkm-map/internal/ingest"
	"umkm-map/internal/models"
	"umkm-map/internal/query"
	"umkm-map/internal/session"
	"umkm-map/internal/validate"
	"umkm-map/internal/view"
)

const (
	mimeCSV     = "text/csv; charset=utf-8"
	mimeXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeGeoJSON = "application/geo+json"
)

// manualCategories are the choices offered by the manual-entry form.
var manualCategories = []string{models.CategoryBusiness, models.CategoryCampus}

// viewParams reads the filter and clustering controls from the query string.
func (s *Server) viewParams(c *gin.Context) (view.Params, error) {
	p := view.Params{
		Category: queryOr(c, "category", query.CategoryAllIndo),
		Search:   c.Query("q"),
		K:        s.cfg.Clustering.DefaultK,
	}

	if raw := c.Query("cluster"); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return p, eris.Errorf("cluster must be true or false, got %q", raw)
		}
		p.Cluster = on
	}

	if raw := c.Query("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			return p, eris.Errorf("k must be an integer, got %q", raw)
		}
		if k < s.cfg.Clustering.MinK || k > s.cfg.Clustering.MaxK {
			return p, eris.Errorf("k must be between %d and %d", s.cfg.Clustering.MinK, s.cfg.Clustering.MaxK)
		}
		p.K = k
	}
	return p, nil
}

// queryOr returns the trimmed query value of key, or def when it is blank.
func queryOr(c *gin.Context, key, def string) string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return v
	}
	return def
}

func (s *Server) buildView(c *gin.Context) (view.View, bool) {
	p, err := s.viewParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return view.View{}, false
	}
	return view.Build(currentSession(c).Current(), p, s.engine), true
}

func (s *Server) listLocations(c *gin.Context) {
	v, ok := s.buildView(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"source":  sess.Source(),
		"pending": sess.PendingLen(),
		"view":    v,
	})
}

func (s *Server) addLocation(c *gin.Context) {
	var entry validate.ManualEntry
	if err := c.ShouldBind(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form: " + err.Error()})
		return
	}

	entry.Name = strings.TrimSpace(entry.Name)
	if entry.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if !isManualCategory(entry.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of " + strings.Join(manualCategories, ", ")})
		return
	}

	rec, err := validate.ParseManualEntry(entry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := currentSession(c)
	n := sess.AddManual(rec)
	zap.L().Info("manual location added",
		zap.String("session", sess.ID),
		zap.String("name", rec.Name),
		zap.Int("pending", n),
	)
	c.JSON(http.StatusCreated, gin.H{"record": rec, "pending": n})
}

func isManualCategory(t string) bool {
	for _, c := range manualCategories {
		if t == c {
			return true
		}
	}
	return false
}

func (s *Server) upload(c *gin.Context) {
	if !s.uploads.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many uploads, try again later"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Upload.MaxBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "please choose a file"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open uploaded file"})
		return
	}
	defer f.Close()

	set, err := ingest.Load(fh.Filename, f)
	if err != nil {
		status, msg := uploadError(err)
		zap.L().Info("upload rejected",
			zap.String("file", fh.Filename),
			zap.Int("status", status),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	sess := currentSession(c)
	sess.SetBase(set, session.SourceUpload)
	zap.L().Info("upload loaded",
		zap.String("session", sess.ID),
		zap.String("file", fh.Filename),
		zap.Int("records", set.Len()),
	)
	c.JSON(http.StatusOK, gin.H{"records": set.Len(), "source": session.SourceUpload})
}

// uploadError maps a load failure to a status and user-facing message.
func uploadError(err error) (int, string) {
	var schemaErr *validate.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		return http.StatusBadRequest, "file must have columns: " + strings.Join(validate.MissingColumns(nil), ", ") + " (missing: " + strings.Join(schemaErr.Missing, ", ") + ")"
	case errors.Is(err, validate.ErrNotNumeric):
		return http.StatusBadRequest, validate.ErrNotNumeric.Error()
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, ingest.ErrUnsupportedFormat.Error()
	default:
		return http.StatusBadRequest, "cannot read file"
	}
}

func (s *Server) exportLocations(c *gin.Context) {
	format := c.Param("format")
	if format != "csv" && format != "xlsx" && format != "geojson" {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown export format " + format})
		return
	}

	v, ok := s.buildView(c)
	if !ok {
		return
	}

	var (
		data []byte
		mime string
		err  error
	)
	switch format {
	case "csv":
		data, err = export.EncodeCSV(v.Set)
		mime = mimeCSV
	case "xlsx":
		var buf bytes.Buffer
		err = excel.WriteLocations(&buf, v.Set)
		data, mime = buf.Bytes(), mimeXLSX
	case "geojson":
		data, err = export.EncodeGeoJSON(v.Set)
		mime = mimeGeoJSON
	}
	if err != nil {
		zap.L().Error("export failed", zap.String("format", format), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	attachment(c, "lokasi."+format, mime, data)
}

func attachment(c *gin.Context, filename, mime string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, mime, data)
}

// pairSides splits the session set into the from/to categories.
func pairSides(c *gin.Context) ([]models.LocationRecord, []models.LocationRecord) {
	cur := currentSession(c).Current()
	from := queryOr(c, "from", models.CategoryBusiness)
	to := queryOr(c, "to", models.CategoryCampus)
	return query.FilterByCategory(cur, from).Records(), query.FilterByCategory(cur, to).Records()
}

func (s *Server) nearest(c *gin.Context) {
	sources, targets := pairSides(c)
	rows, err := calculator.ComputeNearest(sources, targets, nil)
	s.respondPairs(c, "jarak-terdekat.xlsx", rows, err)
}

func (s *Server) nearby(c *gin.Context) {
	meters, err := strconv.ParseFloat(c.DefaultQuery("meters", "1000"), 64)
	if err != nil || meters < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "meters must be a non-negative number"})
		return
	}
	sources, targets := pairSides(c)
	rows, err := calculator.ComputeRadius(sources, targets, meters, nil)
	s.respondPairs(c, "jarak-radius.xlsx", rows, err)
}

func (s *Server) respondPairs(c *gin.Context, filename string, rows []models.NearestRow, err error) {
	if errors.Is(err, calculator.ErrEmptyInput) {
		c.JSON(http.StatusOK, gin.H{"rows": []models.NearestRow{}, "notice": view.NoResultsNotice})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "xlsx" {
		var buf bytes.Buffer
		if err := excel.WriteNearest(&buf, rows); err != nil {
			zap.L().Error("nearest export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		attachment(c, filename, mimeXLSX, buf.Bytes())
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) downloadTemplate(c *gin.Context) {
	data, err := ingest.Template()
	if err != nil {
		zap.L().Error("template export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	attachment(c, "template-lokasi.csv", mimeCSV, data)
}
