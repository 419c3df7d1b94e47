package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"datasetd/internal/apperrors"
	"datasetd/internal/pipeline"
	"datasetd/internal/query"
	"datasetd/internal/storage"
	"datasetd/internal/storage/sqlite"
)

const evSales = "region,year,value\nAustria,2020,100\nGermany,2021,200\n"

func newTestServer(t *testing.T, metrics http.Handler) http.Handler {
	t.Helper()
	dir := t.TempDir()
	log := zaptest.NewLogger(t)
	orch := pipeline.New(pipeline.Options{
		Store:   storage.Config{Kind: sqlite.Kind, DSN: filepath.Join(dir, "store.db")},
		Retry:   storage.RetryPolicy{Interval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond},
		XMLPath: filepath.Join(dir, "output.xml"),
		XSDPath: filepath.Join(dir, "output.xsd"),
	}, log)
	s := NewServer(Config{
		RequestTimeout: 5 * time.Second,
		MaxUploadBytes: 1 << 10,
		ChunkSize:      16,
		UploadsDir:     filepath.Join(dir, "uploads"),
		Metrics:        metrics,
	}, orch, query.New(query.Options{}, log), log)
	return s.Handler()
}

func upload(t *testing.T, h http.Handler, filename, body, table string) (*httptest.ResponseRecorder, uploadResponse) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if table != "" {
		require.NoError(t, mw.WriteField("table", table))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func runQuery(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeQuery(t *testing.T, rec *httptest.ResponseRecorder) queryResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestQuery_NotReady(t *testing.T) {
	h := newTestServer(t, nil)
	rec := runQuery(t, h, `{"filters":{}}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body["error"])
}

func TestUploadAndQuery(t *testing.T) {
	h := newTestServer(t, nil)

	rec, resp := upload(t, h, "ev_sales.csv", evSales, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, "ev_sales_csv", resp.Table)
	assert.EqualValues(t, 2, resp.Rows)
	assert.Len(t, resp.Digest, 16)

	got := decodeQuery(t, runQuery(t, h, `{"filters":{"region":"Austria"}}`))
	require.Equal(t, 1, got.Count)
	assert.Contains(t, got.Rows[0], "<year>2020</year>")
	assert.Contains(t, got.Rows[0], "<value>100</value>")

	got = decodeQuery(t, runQuery(t, h, `{"filters":{"region":"France"}}`))
	assert.Equal(t, 0, got.Count)
	assert.NotNil(t, got.Rows)

	got = decodeQuery(t, runQuery(t, h, `{"filters":{}}`))
	assert.Equal(t, 2, got.Count)

	got = decodeQuery(t, runQuery(t, h, ``))
	assert.Equal(t, 2, got.Count)

	// Reload under the same table without the value column.
	rec, resp = upload(t, h, "other.csv", "region,year\nFrance,2022\n", "ev_sales_csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ev_sales_csv", resp.Table)

	got = decodeQuery(t, runQuery(t, h, `{"filters":{"value":"100"}}`))
	assert.Equal(t, 0, got.Count)
	got = decodeQuery(t, runQuery(t, h, `{"filters":{"region":"France"}}`))
	assert.Equal(t, 1, got.Count)
}

func TestStatus(t *testing.T) {
	h := newTestServer(t, nil)
	_, _ = upload(t, h, "ev.csv", evSales, "sales")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st pipeline.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Valid)
	assert.Equal(t, "sales", st.Table)
	assert.EqualValues(t, 2, st.Rows)
	assert.Equal(t, []string{"region", "year", "value"}, st.Columns)
	assert.NotEmpty(t, st.LoadID)
}

func TestUpload_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     string
		status   int
		code     string
	}{
		{"missing file part", "", "", http.StatusBadRequest, "invalid_upload"},
		{"empty file", "e.csv", "", http.StatusBadRequest, "invalid_upload"},
		{"too large", "big.csv", "region\n" + strings.Repeat("Austria\n", 200), http.StatusBadRequest, "invalid_upload"},
		{"header only", "h.csv", "region,year\n", http.StatusUnprocessableEntity, "empty_document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, nil)
			rec, resp := upload(t, h, tt.filename, tt.body, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestUpload_RepeatedFilePart(t *testing.T) {
	h := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range []struct{ name, body string }{
		{"ev.csv", evSales},
		{"other.csv", "region,year\nFrance,2022\n"},
	} {
		fw, err := mw.CreateFormFile("file", f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid_upload", resp.Error)

	assert.Equal(t, http.StatusConflict, runQuery(t, h, `{"filters":{}}`).Code)
}

func TestQuery_BadJSON(t *testing.T) {
	h := newTestServer(t, nil)
	rec := runQuery(t, h, `{"filters":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	m := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "datasetd_rows_total 0\n")
	})
	h := newTestServer(t, m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "datasetd_rows_total")

	rec = httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrNotReady, http.StatusConflict, "not_ready"},
		{fmt.Errorf("open: %w", apperrors.ErrSourceNotFound), http.StatusNotFound, "source_not_found"},
		{fmt.Errorf("%w: sqlite", apperrors.ErrStoreUnavailable), http.StatusServiceUnavailable, "store_unavailable"},
		{apperrors.ErrInvalidUpload, http.StatusBadRequest, "invalid_upload"},
		{apperrors.ErrEmptyDocument, http.StatusUnprocessableEntity, "empty_document"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, code := statusFor(tt.err)
		if status != tt.status || code != tt.code {
			t.Errorf("statusFor(%v) = %d %s, want %d %s", tt.err, status, code, tt.status, tt.code)
		}
	}
}
