package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/daylog/daylog/internal/report"
	"github.com/daylog/daylog/internal/timeutil"
)

// handleGetReport runs the reporting pipeline for one period.
// Query params: kind=day|week|month (default week) and
// date=YYYY-MM-DD (default today).
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := timeutil.PeriodWeek
	if v := q.Get("kind"); v != "" {
		var err error
		if kind, err = timeutil.ParsePeriodKind(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ref := time.Now()
	if v := q.Get("date"); v != "" {
		var err error
		if ref, err = timeutil.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid date %q", v))
			return
		}
	}

	win := timeutil.WindowFor(ref, kind)
	prev := timeutil.Previous(win, kind)

	cat, err := s.db.GetCatalog(r.Context())
	if writeStoreError(w, err) {
		return
	}
	// One range query covers both windows; Run filters rows
	// into the right one.
	logs, err := s.db.LogsBetween(r.Context(),
		timeutil.FormatDate(prev.Start), timeutil.FormatDate(win.End))
	if writeStoreError(w, err) {
		return
	}

	writeJSON(w, http.StatusOK, report.Run(logs, logs, ref, kind, cat))
}
