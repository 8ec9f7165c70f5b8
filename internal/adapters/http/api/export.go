package api

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
)

// Export formats understood by ExportDependencies.
const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

// ExportDependencies renders standings as files.
type ExportDependencies interface {
	Export(ctx context.Context, tournamentID, format string, w io.Writer) error
	TeamChart(ctx context.Context, tournamentID string) ([]byte, error)
}

// ExportHandler serves spreadsheet and chart downloads.
type ExportHandler struct {
	deps ExportDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleCSV handles GET /tournaments/{tid}/results.csv.
func (h *ExportHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, formatCSV, "text/csv; charset=utf-8")
}

// HandleXLSX handles GET /tournaments/{tid}/results.xlsx.
func (h *ExportHandler) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, formatXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// serve renders into a buffer first so failures still produce a JSON error.
func (h *ExportHandler) serve(w http.ResponseWriter, r *http.Request, format, contentType string) {
	tid := tournamentID(r)
	var buf bytes.Buffer
	if err := h.deps.Export(r.Context(), tid, format, &buf); err != nil {
		fail(r.Context(), w, Wrap("api.export_"+format, err))
		return
	}
	writeFile(w, contentType, "results-"+tid+"."+format, buf.Bytes())
}

// HandleTeamChart handles GET /tournaments/{tid}/teams.png.
func (h *ExportHandler) HandleTeamChart(w http.ResponseWriter, r *http.Request) {
	png, err := h.deps.TeamChart(r.Context(), tournamentID(r))
	if err != nil {
		fail(r.Context(), w, Wrap("api.team_chart", err))
		return
	}
	writeFile(w, "image/png", "", png)
}

func writeFile(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
