package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/nlparse"
	"github.com/daylog/daylog/internal/timeutil"
)

// pathSlot parses the {day}/{hour} path segments.
func pathSlot(r *http.Request) (string, int, error) {
	day := r.PathValue("day")
	if _, err := timeutil.ParseDate(day); err != nil {
		return "", 0, fmt.Errorf("invalid day %q", day)
	}
	hour, err := strconv.Atoi(r.PathValue("hour"))
	if err != nil || hour < 0 || hour > 23 {
		return "", 0, fmt.Errorf("invalid hour %q", r.PathValue("hour"))
	}
	return day, hour, nil
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest,
			"from and to query params are required (YYYY-MM-DD)")
		return
	}
	for _, d := range []string{from, to} {
		if _, err := timeutil.ParseDate(d); err != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid date %q", d))
			return
		}
	}

	logs, err := s.db.LogsBetween(r.Context(), from, to)
	if writeStoreError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	day, hour, err := pathSlot(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := s.db.GetLog(r.Context(), day, hour)
	if writeStoreError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleSaveLog(w http.ResponseWriter, r *http.Request) {
	var l db.HourLog
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := timeutil.ParseDate(l.Day); err != nil {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid day %q", l.Day))
		return
	}

	id, err := s.db.SaveLog(r.Context(), l)
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l.ID = id
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	day, hour, err := pathSlot(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if writeStoreError(w, s.db.DeleteLog(r.Context(), day, hour)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// parseLogsRequest is the body of POST /api/v1/logs/parse.
type parseLogsRequest struct {
	Text     string `json:"text"`
	Day      string `json:"day"`
	FromHour int    `json:"from_hour"`
	ToHour   int    `json:"to_hour"`
}

// handleParseLogs stages entries extracted from free text. The
// response suggests category IDs resolved against the catalog;
// nothing is saved until the client submits the entries.
func (s *Server) handleParseLogs(w http.ResponseWriter, r *http.Request) {
	var req parseLogsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if _, err := timeutil.ParseDate(req.Day); err != nil {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid day %q", req.Day))
		return
	}
	if req.ToHour == 0 {
		req.ToHour = 23
	}

	cat, err := s.db.GetCatalog(r.Context())
	if writeStoreError(w, err) {
		return
	}
	names := make([]string, 0, len(cat.Categories))
	for _, c := range cat.Categories {
		names = append(names, c.Name)
	}

	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	entries, err := s.parseFunc(r.Context(), cfg, nlparse.Request{
		Text:       req.Text,
		Day:        req.Day,
		FromHour:   req.FromHour,
		ToHour:     req.ToHour,
		Categories: names,
		Recent:     s.recentLines(r, cat),
	})
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	type staged struct {
		nlparse.ParsedEntry
		CategoryID *int64 `json:"category_id"`
	}
	out := make([]staged, 0, len(entries))
	for _, e := range entries {
		st := staged{ParsedEntry: e}
		if c := cat.CategoryByName(e.Category); c != nil {
			id := c.ID
			st.CategoryID = &id
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// recentLines renders the last few logs as short context lines
// for the model prompt. Failures just mean less context.
func (s *Server) recentLines(r *http.Request, cat db.Catalog) []string {
	logs, err := s.db.AllLogs(r.Context())
	if err != nil || len(logs) == 0 {
		return nil
	}
	if len(logs) > 10 {
		logs = logs[len(logs)-10:]
	}
	lines := make([]string, 0, len(logs))
	for _, l := range logs {
		name := ""
		if l.CategoryID != nil {
			if c := cat.CategoryByID(*l.CategoryID); c != nil {
				name = c.Name
			}
		}
		lines = append(lines, fmt.Sprintf("%s %02d:00 %s", l.Day, l.Hour, name))
	}
	return lines
}

func (s *Server) handleGetOpenAIConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"configured": s.openAIKey() != "",
	})
}

func (s *Server) handleSetOpenAIConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	s.mu.Lock()
	err := s.cfg.SaveOpenAIKey(req.Key)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"configured": true})
}
