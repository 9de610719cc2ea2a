package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"umkm-map/internal/config"
	"umkm-map/internal/grouping"
	"umkm-map/internal/ingest"
	"umkm-map/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{SessionSecret: "test-secret", CookieName: "umkm-test"},
		Clustering: config.ClusteringConfig{MinK: 2, MaxK: 8, DefaultK: 3},
		Upload:     config.UploadConfig{MaxBytes: 1 << 20, PerMinute: 100},
		Session:    config.SessionConfig{TTLMinutes: 60},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (http.Handler, *session.Store) {
	t.Helper()
	store := session.NewStore(ingest.Sample, cfg.Session.TTL())
	srv := NewServer(cfg, store, grouping.New(cfg.Clustering.Options()))
	return srv.Router(), store
}

// client replays the session cookie like a browser would.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	if got := w.Result().Cookies(); len(got) > 0 {
		c.cookies = got
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) upload(filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = fw.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

type listResponse struct {
	Source  string `json:"source"`
	Pending int    `json:"pending"`
	View    struct {
		Records []struct {
			Name    string `json:"name"`
			Type    string `json:"type"`
			Cluster *int   `json:"cluster"`
			Geohash string `json:"geohash"`
		} `json:"records"`
		Total      int      `json:"total"`
		Clustered  bool     `json:"clustered"`
		Notice     string   `json:"notice"`
		Warnings   []string `json:"warnings"`
		Clustering *struct {
			Centroids []struct {
				Cluster   int     `json:"cluster"`
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"centroids"`
		} `json:"clustering"`
	} `json:"view"`
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) listResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}
	w := c.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListLocations_Sample(t *testing.T) {
	h, store := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	resp := decodeList(t, c.get("/api/locations"))
	assert.Equal(t, session.SourceSample, resp.Source)
	assert.Equal(t, 8, resp.View.Total)
	assert.Len(t, resp.View.Records, 8)
	assert.False(t, resp.View.Clustered)
	assert.Equal(t, 1, store.Len())

	c.get("/api/locations")
	assert.Equal(t, 1, store.Len(), "cookie should resume the same session")
}

func TestListLocations_FilterAndCluster(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	resp := decodeList(t, c.get("/api/locations?category=UMKM"))
	require.Len(t, resp.View.Records, 4)
	for _, r := range resp.View.Records {
		assert.Equal(t, "UMKM", r.Type)
	}

	resp = decodeList(t, c.get("/api/locations?category="))
	assert.Len(t, resp.View.Records, 8)

	resp = decodeList(t, c.get("/api/locations?cluster=true&k=3"))
	require.True(t, resp.View.Clustered)
	require.NotNil(t, resp.View.Clustering)
	assert.Len(t, resp.View.Clustering.Centroids, 3)
	for _, r := range resp.View.Records {
		require.NotNil(t, r.Cluster)
		assert.Contains(t, []int{0, 1, 2}, *r.Cluster)
	}

	resp = decodeList(t, c.get("/api/locations?q=tidak-ada"))
	assert.Empty(t, resp.View.Records)
	assert.NotEmpty(t, resp.View.Notice)
}

func TestListLocations_BadParams(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	for _, q := range []string{"k=1", "k=9", "k=abc", "cluster=maybe"} {
		w := c.get("/api/locations?" + q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestAddLocation(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.postForm("/api/locations", url.Values{
		"name": {"Warung Baru"}, "type": {"UMKM"},
		"latitude": {"-2.68"}, "longitude": {"118.89"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeList(t, c.get("/api/locations?q=baru"))
	assert.Equal(t, 1, resp.Pending)
	require.Len(t, resp.View.Records, 1)
	assert.Equal(t, "Warung Baru", resp.View.Records[0].Name)
}

func TestAddLocation_JSON(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	req := httptest.NewRequest(http.MethodPost, "/api/locations",
		strings.NewReader(`{"name":"Kampus Baru","type":"Kampus","latitude":"-2.7","longitude":"118.9","description":"baru"}`))
	req.Header.Set("Content-Type", "application/json")
	w := c.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 9, decodeList(t, c.get("/api/locations")).View.Total)
}

func TestAddLocation_JSONNumbers(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	req := httptest.NewRequest(http.MethodPost, "/api/locations",
		strings.NewReader(`{"name":"Kampus Angka","type":"Kampus","latitude":-2.7,"longitude":118.9}`))
	req.Header.Set("Content-Type", "application/json")
	w := c.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeList(t, c.get("/api/locations?q=angka"))
	assert.Equal(t, 1, resp.Pending)
	require.Len(t, resp.View.Records, 1)
}

func TestAddLocation_RejectsBadLatitude(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	before := decodeList(t, c.get("/api/locations"))

	w := c.postForm("/api/locations", url.Values{
		"name": {"Warung"}, "type": {"UMKM"},
		"latitude": {"abc"}, "longitude": {"118.89"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "latitude")

	after := decodeList(t, c.get("/api/locations"))
	assert.Equal(t, before.Pending, after.Pending)
	assert.Equal(t, before.View.Total, after.View.Total)
}

func TestAddLocation_RejectsTypeAndName(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.postForm("/api/locations", url.Values{
		"name": {"Toko"}, "type": {"Pabrik"}, "latitude": {"1"}, "longitude": {"2"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.postForm("/api/locations", url.Values{
		"name": {"  "}, "type": {"UMKM"}, "latitude": {"1"}, "longitude": {"2"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, decodeList(t, c.get("/api/locations")).Pending)
}

func TestSessionsDoNotShareManualEntries(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	alice := &client{t: t, handler: h}
	bob := &client{t: t, handler: h}

	w := alice.postForm("/api/locations", url.Values{
		"name": {"Milik Alice"}, "type": {"UMKM"}, "latitude": {"-2.6"}, "longitude": {"118.9"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, 9, decodeList(t, alice.get("/api/locations")).View.Total)
	assert.Equal(t, 8, decodeList(t, bob.get("/api/locations")).View.Total)
}

func TestUpload_CSV(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.upload("lokasi.csv", []byte("name,type,latitude,longitude\nWarung Maju,UMKM,-6.914744,107.609810\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeList(t, c.get("/api/locations"))
	assert.Equal(t, session.SourceUpload, resp.Source)
	require.Len(t, resp.View.Records, 1)
	assert.Equal(t, "Warung Maju", resp.View.Records[0].Name)
}

func TestUpload_XLSX(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.get("/api/export/xlsx?category=Kampus")
	require.Equal(t, http.StatusOK, w.Code)

	w = c.upload("kampus.xlsx", w.Body.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 4, decodeList(t, c.get("/api/locations")).View.Total)
}

func TestUpload_Errors(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.upload("x.csv", []byte("name,type\nA,UMKM\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing: latitude, longitude")
	assert.Contains(t, w.Body.String(), "file must have columns: latitude, longitude, name, type")

	w = c.upload("x.csv", []byte("name,type,latitude,longitude\nA,UMKM,abc,1\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "latitude/longitude must be numeric")

	w = c.upload("x.txt", []byte("hello"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	// Failed uploads leave the sample in place.
	resp := decodeList(t, c.get("/api/locations"))
	assert.Equal(t, session.SourceSample, resp.Source)
	assert.Equal(t, 8, resp.View.Total)
}

func TestUpload_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.PerMinute = 1
	h, _ := newTestServer(t, cfg)
	c := &client{t: t, handler: h}

	csv := []byte("name,type,latitude,longitude\nA,UMKM,1,2\n")
	require.Equal(t, http.StatusOK, c.upload("a.csv", csv).Code)
	assert.Equal(t, http.StatusTooManyRequests, c.upload("a.csv", csv).Code)
}

func TestExport_CSV(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.get("/api/export/csv?category=UMKM&cluster=true&k=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="lokasi.csv"`)

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "name,type,latitude,longitude,description,cluster", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Warung Pantai Manakarra,UMKM,-2.6773,118.8867,"))
}

func TestExport_XLSXAndGeoJSON(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.get("/api/export/xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("Lokasi")
	require.NoError(t, err)
	assert.Len(t, rows, 9)
	require.NoError(t, f.Close())

	w = c.get("/api/export/geojson?q=mandar")
	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Len(t, doc.Features, 2)

	assert.Equal(t, http.StatusNotFound, c.get("/api/export/pdf").Code)
}

func TestNearest(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.get("/api/nearest")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Rows []struct {
			SourceName string `json:"source_name"`
			TargetType string `json:"target_type"`
			Distance   int    `json:"distance_m"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 4)
	assert.Equal(t, "Warung Pantai Manakarra", resp.Rows[0].SourceName)
	for _, r := range resp.Rows {
		assert.Equal(t, "Kampus", r.TargetType)
	}

	w = c.get("/api/nearest?format=xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "jarak-terdekat.xlsx")

	w = c.get("/api/nearest?from=Koperasi")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rows":[]`)
}

func TestNearby(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.get("/api/nearby?meters=2000")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Politeknik Negeri Mamuju")

	assert.Equal(t, http.StatusBadRequest, c.get("/api/nearby?meters=-5").Code)
	assert.Equal(t, http.StatusBadRequest, c.get("/api/nearby?meters=far").Code)
}

func TestDownloadTemplate(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	c := &client{t: t, handler: h}

	w := c.get("/download-template")
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "name,type,latitude,longitude,description\n"))
}
