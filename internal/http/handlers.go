package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"seppe/internal/core"
	"seppe/internal/dashboard"
	"seppe/internal/export"
	"seppe/internal/history"
	"seppe/internal/log"
	"seppe/internal/services"
)

const readyTimeout = 5 * time.Second

type (
	datasetInfo struct {
		Version    uint64     `json:"version"`
		Records    int        `json:"records"`
		Source     string     `json:"source,omitempty"`
		ImportedAt *time.Time `json:"imported_at,omitempty"`
	}

	dashboardResponse struct {
		dashboard.View
		Dataset datasetInfo `json:"dataset"`
	}

	recordsResponse struct {
		Filters []string             `json:"filters"`
		Records []core.ProjectRecord `json:"records"`
		Dataset datasetInfo          `json:"dataset"`
	}

	secretariatsResponse struct {
		Default      core.Secretariat   `json:"default"`
		Secretariats []core.Secretariat `json:"secretariats"`
	}
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the history backend and reports the active dataset
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "not_ready", "error": err.Error()})
			return
		}
	}
	render.JSON(w, r, map[string]any{
		"status":  "ready",
		"dataset": s.datasetInfo(),
	})
}

func (s *Server) handleSecretariats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, secretariatsResponse{
		Default:      s.catalog.Default(),
		Secretariats: s.catalog.Entries(),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.View(r.Context(), s.filters(r))
	if err != nil {
		s.fail(w, r, "Failed to build dashboard", err, errInternal)
		return
	}
	render.JSON(w, r, dashboardResponse{View: view, Dataset: s.datasetInfo()})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	filters := services.NormalizeFilters(s.filters(r))
	records, err := s.dashboard.Records(r.Context(), filters)
	if err != nil {
		s.fail(w, r, "Failed to list records", err, errInternal)
		return
	}
	if records == nil {
		records = []core.ProjectRecord{}
	}
	render.JSON(w, r, recordsResponse{Filters: filters, Records: records, Dataset: s.datasetInfo()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	records, err := s.dashboard.Records(r.Context(), s.filters(r))
	if err != nil {
		s.fail(w, r, "Failed to export records", err, errInternal)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="entregas.csv"`)
	if err := export.WriteCSV(w, records); err != nil {
		// Headers are already sent; only log.
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to write CSV export",
			log.FieldOperation, log.OpExport,
			log.FieldError, err.Error())
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUpload {
		_ = render.Render(w, r, errTooLarge(s.maxUpload))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	name, data, err := readUpload(r, s.maxUpload)
	switch {
	case err == nil:
	case errors.Is(err, errNoUpload):
		_ = render.Render(w, r, errMissingFile)
		return
	case isTooLarge(err):
		_ = render.Render(w, r, errTooLarge(s.maxUpload))
		return
	default:
		s.fail(w, r, "Failed to read upload", err, newAPIError(http.StatusBadRequest, "INVALID_UPLOAD", "Não foi possível receber o arquivo enviado."))
		return
	}

	out, err := s.imports.ImportFile(r.Context(), name, data)
	if err != nil {
		s.fail(w, r, "Import rejected", err, importError(err))
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleImportSheets(w http.ResponseWriter, r *http.Request) {
	out, err := s.imports.ImportSheet(r.Context())
	if err != nil {
		s.fail(w, r, "Sheets import rejected", err, importError(err))
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		_ = render.Render(w, r, errInvalidLimit)
		return
	}
	entries := []history.Entry{}
	if s.history != nil {
		list, err := s.history.List(r.Context(), limit)
		if err != nil {
			s.fail(w, r, "Failed to list imports", err, errInternal)
			return
		}
		entries = append(entries, list...)
	}
	render.JSON(w, r, map[string]any{"imports": entries})
}

func (s *Server) handleImportSkips(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		_ = render.Render(w, r, errImportNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	skips, err := s.history.Skips(r.Context(), id)
	if err != nil {
		s.fail(w, r, "Failed to load import skips", err, lookupError(err))
		return
	}
	if skips == nil {
		skips = []history.Skip{}
	}
	render.JSON(w, r, map[string]any{"import_id": id, "skips": skips})
}

// filters reads repeated ?secretariat= values. A bare code such as "SESAU"
// is expanded to its catalog label.
func (s *Server) filters(r *http.Request) []string {
	values := r.URL.Query()[filterParam]
	out := make([]string, 0, len(values))
	for _, v := range values {
		if sec, ok := s.catalog.ByCode(v); ok {
			v = sec.Label
		}
		out = append(out, v)
	}
	return out
}

func (s *Server) datasetInfo() datasetInfo {
	meta, n := s.dashboard.Meta()
	info := datasetInfo{Version: meta.Version, Records: n, Source: meta.Source}
	if !meta.ImportedAt.IsZero() {
		at := meta.ImportedAt
		info.ImportedAt = &at
	}
	return info
}

// fail logs err and renders apiErr. Client errors are logged at warn level.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error, apiErr *APIError) {
	logger := log.FromContext(r.Context())
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), msg, log.FieldError, err.Error(), log.FieldStatusCode, apiErr.StatusCode)
	} else {
		logger.WarnContext(r.Context(), msg, log.FieldError, err.Error(), log.FieldStatusCode, apiErr.StatusCode)
	}
	_ = render.Render(w, r, apiErr)
}
