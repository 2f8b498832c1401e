package project

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskdash/internal/model"
)

type Handler struct {
	repo     Repository
	onCreate func(p model.Project)
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) SetCreateHook(fn func(p model.Project)) {
	h.onCreate = fn
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// /api/projects
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ps, err := h.repo.List(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, ps)

	case http.MethodPost:
		var in model.Fields
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		p, err := h.repo.Create(r.Context(), model.ProjectFromFields(in))
		if errors.Is(err, ErrInvalid) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		if h.onCreate != nil {
			h.onCreate(p)
		}
		writeJSON(w, http.StatusCreated, p)

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
