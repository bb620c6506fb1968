package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/export"
	"github.com/daylog/daylog/internal/importer"
	"github.com/daylog/daylog/internal/timeutil"
)

// fetchLogs returns the full journal, or the half-open [from, to)
// slice of it when both bounds are given.
func (s *Server) fetchLogs(
	r *http.Request, from, to string,
) ([]db.HourLog, error) {
	if from != "" && to != "" {
		return s.db.LogsBetween(r.Context(), from, to)
	}
	return s.db.AllLogs(r.Context())
}

// handleExport streams the journal as a CSV download. Optional
// from/to query params restrict the date range (half-open).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := timeutil.ParseDate(d); err != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid date %q", d))
			return
		}
	}

	cat, err := s.db.GetCatalog(r.Context())
	if writeStoreError(w, err) {
		return
	}
	rows, err := s.fetchLogs(r, from, to)
	if writeStoreError(w, err) {
		return
	}

	filename := fmt.Sprintf("daylog-%s.csv",
		time.Now().Format(timeutil.DateOnly))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filename))

	if err := export.Write(w, rows, cat); err != nil {
		// Headers are already out; all we can do is log.
		log.Printf("export: %v", err)
	}
}

// handleImport imports CSV from the request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	cat, err := s.db.GetCatalog(r.Context())
	if writeStoreError(w, err) {
		return
	}
	logs, err := export.Read(r.Body, cat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows := 0
	for _, l := range logs {
		if _, err := s.db.SaveLog(r.Context(), l); err != nil {
			if handleContextError(w, err) {
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		rows++
	}
	writeJSON(w, http.StatusOK, importer.Result{File: "upload", Rows: rows})
}

// handleImportRun scans the drop directory in the background.
// No timeout wrapper: large directories can exceed it, and the
// client polls import/status anyway.
func (s *Server) handleImportRun(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "importer not running")
		return
	}
	go func() {
		if _, err := s.engine.ImportDir(context.Background(), nil); err != nil {
			log.Printf("import run: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleImportStatus(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "importer not running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"last_run":   s.engine.LastRun(),
		"last_stats": s.engine.LastStats(),
		"dir":        s.engine.Dir(),
	})
}
