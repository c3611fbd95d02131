package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/classify"
	"github.com/KaramelBytes/sheetscope-cli/internal/clean"
	"github.com/KaramelBytes/sheetscope-cli/internal/export"
	"github.com/KaramelBytes/sheetscope-cli/internal/filter"
	"github.com/KaramelBytes/sheetscope-cli/internal/ingest"
	"github.com/KaramelBytes/sheetscope-cli/internal/session"
	"github.com/KaramelBytes/sheetscope-cli/internal/summary"
	"github.com/KaramelBytes/sheetscope-cli/internal/views"
	"github.com/rs/zerolog"
)

type handler struct {
	session   *session.Session
	exporter  *export.Exporter
	maxUpload int64
	topN      int
	format    export.Format
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

type datasetResponse struct {
	ID       string              `json:"id"`
	FileName string              `json:"file_name"`
	LoadedAt time.Time           `json:"loaded_at"`
	Rows     int                 `json:"rows"`
	Columns  []string            `json:"columns"`
	Clean    clean.Report        `json:"clean"`
	Tags     []classify.Decision `json:"classification"`
}

type summaryResponse struct {
	Scope  string          `json:"scope"`
	Filter filter.Spec     `json:"filter"`
	Report *summary.Report `json:"report"`
}

// filterRequest accepts dates as 2006-01-02 or RFC 3339.
type filterRequest struct {
	DateColumn     string   `json:"date_column"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	CategoryColumn string   `json:"category_column"`
	Categories     []string `json:"categories"`
	MissingOnly    bool     `json:"missing_only"`
}

func (f filterRequest) spec() (filter.Spec, error) {
	s := filter.Spec{
		DateColumn:     f.DateColumn,
		CategoryColumn: f.CategoryColumn,
		Categories:     f.Categories,
		MissingOnly:    f.MissingOnly,
	}
	var err error
	if s.From, err = parseBound(f.From); err != nil {
		return s, fmt.Errorf("invalid 'from': %w", err)
	}
	if s.To, err = parseBound(f.To); err != nil {
		return s, fmt.Errorf("invalid 'to': %w", err)
	}
	return s, nil
}

func parseBound(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, l := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(l, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%q is not YYYY-MM-DD or RFC 3339", s)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}
	var ie *ingest.Error
	switch {
	case errors.As(err, &ie):
		status = http.StatusBadRequest
		resp.Hint = ie.Hint
	case errors.Is(err, session.ErrNoDataset):
		status = http.StatusConflict
		resp.Hint = "upload a spreadsheet first"
	case errors.Is(err, filter.ErrUnknownColumn), errors.Is(err, views.ErrUnknownColumn):
		status = http.StatusBadRequest
		resp.Hint = "use a column name from GET /api/v1/columns"
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, r, status, resp)
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func describe(st *session.State) datasetResponse {
	return datasetResponse{
		ID:       st.ID,
		FileName: st.FileName,
		LoadedAt: st.LoadedAt,
		Rows:     st.Data.Rows(),
		Columns:  st.Data.Names(),
		Clean:    st.Clean,
		Tags:     st.Classification.Decisions(),
	}
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, &ingest.Error{Source: "upload", Hint: "upload a smaller file", Err: ingest.ErrTooLarge})
			return
		}
		writeError(w, r, badRequest("multipart field 'file' is required: %v", err))
		return
	}
	defer file.Close()

	st, err := h.session.Load(ctx, file, header.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, describe(st))
}

func (h *handler) reset(w http.ResponseWriter, r *http.Request) {
	h.session.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Require()
	if err != nil {
		writeError(w, r, err)
		return
	}
	scope := r.URL.Query().Get("scope")
	resp := summaryResponse{Scope: "view", Filter: st.Filter, Report: st.ViewReport}
	switch scope {
	case "", "view":
	case "baseline":
		resp.Scope, resp.Report = "baseline", st.Baseline
	default:
		writeError(w, r, badRequest("scope must be baseline or view"))
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *handler) columns(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Require()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, describe(st))
}

func (h *handler) setFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("invalid filter body: %v", err))
		return
	}
	spec, err := req.spec()
	if err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}
	st, err := h.session.SetFilter(r.Context(), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summaryResponse{Scope: "view", Filter: st.Filter, Report: st.ViewReport})
}

func (h *handler) clearFilter(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.ClearFilter(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summaryResponse{Scope: "view", Filter: st.Filter, Report: st.ViewReport})
}

func (h *handler) timeSeries(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Require()
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	dateCol := q.Get("date")
	if dateCol == "" {
		dateCol = first(st.Classification.Columns(classify.Date))
	}
	values := q["value"]
	if len(values) == 0 {
		if v := first(st.Classification.Columns(classify.Numeric)); v != "" {
			values = []string{v}
		}
	}
	if dateCol == "" || len(values) == 0 {
		writeError(w, r, badRequest("time series needs a date column and at least one value column"))
		return
	}
	s, err := views.TimeSeries(st.View, dateCol, values...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s)
}

func (h *handler) topCategories(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Require()
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	col := q.Get("column")
	if col == "" {
		col = first(st.Classification.Columns(classify.Categorical))
	}
	n := h.topN
	if s := q.Get("n"); s != "" {
		if n, err = strconv.Atoi(s); err != nil {
			writeError(w, r, badRequest("n must be an integer"))
			return
		}
	}
	if col == "" {
		writeError(w, r, badRequest("no categorical column to count"))
		return
	}
	top, err := views.TopCategories(st.View, col, n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"column": col, "categories": top})
}

func (h *handler) categoryMeans(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Require()
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	cat, val := q.Get("category"), q.Get("value")
	if cat == "" || val == "" {
		writeError(w, r, badRequest("category and value are required"))
		return
	}
	means, err := views.CategoryMeans(st.View, cat, val)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"category": cat, "value": val, "means": means})
}

func (h *handler) correlation(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Require()
	if err != nil {
		writeError(w, r, err)
		return
	}
	cols := r.URL.Query()["column"]
	if len(cols) == 0 {
		cols = st.Classification.Columns(classify.Numeric)
	}
	if len(cols) < 2 {
		writeError(w, r, badRequest("correlation needs at least two numeric columns"))
		return
	}
	m, err := views.Correlation(st.View, cols...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, m)
}

func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Require()
	if err != nil {
		writeError(w, r, err)
		return
	}
	format := h.format
	if s := r.URL.Query().Get("format"); s != "" {
		if format, err = export.ParseFormat(s); err != nil {
			writeError(w, r, badRequest("%v", err))
			return
		}
	}
	out, err := h.exporter.Render(format, st.View, st.ViewReport)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out.Notice != "" {
		zerolog.Ctx(r.Context()).Warn().Str("notice", out.Notice).Msg("export degraded to csv")
		w.Header().Set("X-Export-Notice", out.Notice)
	}
	name := strings.TrimSuffix(st.FileName, extOf(st.FileName)) + "_filtered." + string(out.Format)
	w.Header().Set("Content-Type", out.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to write export")
	}
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
