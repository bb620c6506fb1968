package server

import (
	"encoding/json"
	"net/http"

	"github.com/daylog/daylog/internal/db"
)

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := s.db.GetCatalog(r.Context())
	if writeStoreError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	cat, err := s.db.GetCatalog(r.Context())
	if writeStoreError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, cat.Groups)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var g db.Group
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if g.Name == "" {
		writeError(w, http.StatusBadRequest, "group name is required")
		return
	}

	id, err := s.db.InsertGroup(r.Context(), g)
	if writeStoreError(w, err) {
		return
	}
	g.ID = id
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	var g db.Group
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	g.ID = id

	if writeStoreError(w, s.db.UpdateGroup(r.Context(), g)) {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	if writeStoreError(w, s.db.DeleteGroup(r.Context(), id)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cat, err := s.db.GetCatalog(r.Context())
	if writeStoreError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, cat.Categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c db.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "category name is required")
		return
	}

	id, err := s.db.InsertCategory(r.Context(), c)
	if writeStoreError(w, err) {
		return
	}
	c.ID = id
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var c db.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c.ID = id

	if writeStoreError(w, s.db.UpdateCategory(r.Context(), c)) {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if writeStoreError(w, s.db.DeleteCategory(r.Context(), id)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context())
	if writeStoreError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
