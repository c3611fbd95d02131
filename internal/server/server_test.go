package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/KaramelBytes/sheetscope-cli/internal/export"
	"github.com/KaramelBytes/sheetscope-cli/internal/session"
	"github.com/KaramelBytes/sheetscope-cli/internal/summary"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = "Date,Sales,Region\n" +
	"2024-01-01,10,North\n" +
	"2024-01-02,20,South\n" +
	"2024-01-01,30,North\n" +
	"2024-01-03,,East\n"

func newTestServer(t *testing.T, exp *export.Exporter) *httptest.Server {
	t.Helper()
	router := ConfigureRouter(Config{
		MaxUploadBytes: 1 << 20,
		TopN:           10,
		ExportFormat:   export.XLSX,
		Dependencies: Dependencies{
			Session:  session.New(session.DefaultOptions()),
			Exporter: exp,
			Logger:   zerolog.New(zerolog.NewTestWriter(t)),
		},
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, ts *httptest.Server, name, body string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/v1/dataset", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func do(t *testing.T, method, url string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestWebAPI_Endpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/summary", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = upload(t, ts, "sales.csv", salesCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ds := decode[datasetResponse](t, resp)
	assert.Equal(t, 4, ds.Rows)
	assert.Equal(t, []string{"Date", "Sales", "Region"}, ds.Columns)
	require.Len(t, ds.Tags, 3)
	assert.EqualValues(t, "Date", ds.Tags[0].Tag)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "Summary",
			path:           "/api/v1/summary?scope=baseline",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var s struct {
					Scope  string         `json:"scope"`
					Report summary.Report `json:"report"`
				}
				require.NoError(t, json.Unmarshal(body, &s))
				assert.Equal(t, "baseline", s.Scope)
				assert.Equal(t, 1, s.Report.MissingCells)
				require.Len(t, s.Report.Numeric, 1)
				assert.InDelta(t, 20, float64(s.Report.Numeric[0].Mean), 1e-9)
			},
		},
		{
			name:           "TimeSeries",
			path:           "/api/v1/views/timeseries?date=Date&value=Sales",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var s struct {
					Points []struct {
						Date string    `json:"date"`
						Sums []float64 `json:"sums"`
					} `json:"points"`
				}
				require.NoError(t, json.Unmarshal(body, &s))
				require.Len(t, s.Points, 3)
				assert.True(t, strings.HasPrefix(s.Points[0].Date, "2024-01-01"))
				assert.Equal(t, []float64{40}, s.Points[0].Sums)
				assert.Equal(t, []float64{20}, s.Points[1].Sums)
			},
		},
		{
			name:           "TopCategories",
			path:           "/api/v1/views/top?column=Region&n=2",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `{"column":"Region","categories":[{"value":"North","count":2},{"value":"South","count":1}]}`, string(body))
			},
		},
		{
			name:           "CategoryMeans",
			path:           "/api/v1/views/category-means?category=Region&value=Sales",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), `{"category":"North","mean":20,"count":2}`)
				assert.Contains(t, string(body), `{"category":"East","mean":null,"count":0}`)
			},
		},
		{
			name:           "CorrelationNeedsTwoColumns",
			path:           "/api/v1/views/correlation",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "UnknownColumn",
			path:           "/api/v1/views/top?column=Nope",
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "unknown column")
				assert.Contains(t, string(body), "hint")
			},
		},
		{
			name:           "BadScope",
			path:           "/api/v1/summary?scope=all",
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, ts.URL+tc.path, nil)
			assert.Equal(t, tc.expectedStatus, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if tc.check != nil {
				tc.check(t, body)
			}
		})
	}
}

func TestWebAPI_FilterAndExport(t *testing.T) {
	ts := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, upload(t, ts, "sales.csv", salesCSV).StatusCode)

	resp := do(t, http.MethodPut, ts.URL+"/api/v1/filter", strings.NewReader(`{"date_column":"Date","from":"2024-01-02","category_column":"Region","categories":[]}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s struct {
		Report summary.Report `json:"report"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, 2, s.Report.Rows)

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/export?format=csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "sales_filtered.csv")
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Date,Sales,Region\n2024-01-02,20,South\n2024-01-03,,East\n", string(body))

	resp = do(t, http.MethodPut, ts.URL+"/api/v1/filter", strings.NewReader(`{"date_column":"Date","from":"soon"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/api/v1/filter", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, 4, s.Report.Rows)

	resp = do(t, http.MethodDelete, ts.URL+"/api/v1/dataset", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/api/v1/columns", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWebAPI_FailedUploadKeepsDataset(t *testing.T) {
	ts := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, upload(t, ts, "sales.csv", salesCSV).StatusCode)

	resp := upload(t, ts, "broken.xlsx", "not a workbook")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decode[errorResponse](t, resp)
	assert.Contains(t, e.Hint, "close the workbook")

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/columns", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sales.csv", decode[datasetResponse](t, resp).FileName)
}

func TestWebAPI_ExportDegradesToCSV(t *testing.T) {
	exp := &export.Exporter{Workbook: func(io.Writer, *dataset.Dataset, *summary.Report) error {
		return errors.New("workbook writer offline")
	}}
	ts := newTestServer(t, exp)
	require.Equal(t, http.StatusCreated, upload(t, ts, "sales.csv", salesCSV).StatusCode)

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("X-Export-Notice"), "workbook writer offline")
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
}
