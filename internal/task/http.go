package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"taskdash/internal/model"
)

// Change operations passed to the change hook.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

type Handler struct {
	repo     Repo
	onChange func(op string, t model.Task)
}

func NewHandler(repo Repo) *Handler {
	return &Handler{repo: repo}
}

// SetChangeHook registers fn to run after every successful write.
func (h *Handler) SetChangeHook(fn func(op string, t model.Task)) {
	h.onChange = fn
}

func (h *Handler) changed(op string, t model.Task) {
	if h.onChange != nil {
		h.onChange(op, t)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// DecodeFields reads a JSON object body. Numbers stay json.Number so
// ids survive without float rounding.
func DecodeFields(r *http.Request) (model.Fields, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var f model.Fields
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if f == nil {
		f = model.Fields{}
	}
	return f, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// /api/tasks  (collection)
func (h *Handler) TasksRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		ts, err := h.repo.List(r.Context(), ListFilter{
			Project: q.Get("project"),
			Meeting: q.Get("meeting"),
		})
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, ts)
		return

	case http.MethodPost:
		in, err := DecodeFields(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		t, err := h.repo.Create(r.Context(), FromFields(in))
		if err != nil {
			writeErr(w, statusFor(err), err.Error())
			return
		}
		h.changed(OpCreated, t)
		writeJSON(w, http.StatusCreated, t)
		return

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
}

// /api/tasks/{id}
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
	if tail == "" || strings.Contains(tail, "/") {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	id, err := model.ParseTaskID(tail)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, err := h.repo.Get(r.Context(), id)
		if err != nil {
			writeErr(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, t)
		return

	case http.MethodPatch, http.MethodPut:
		in, err := DecodeFields(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		if bodyID, ok := in.TaskID(); ok && bodyID != id {
			writeErr(w, http.StatusBadRequest, "task_id in body does not match path")
			return
		}
		p := PatchFromFields(in)
		if p.Empty() {
			writeErr(w, http.StatusBadRequest, "no fields to update")
			return
		}
		t, err := h.repo.Update(r.Context(), id, p)
		if err != nil {
			writeErr(w, statusFor(err), err.Error())
			return
		}
		h.changed(OpUpdated, t)
		writeJSON(w, http.StatusOK, t)
		return

	case http.MethodDelete:
		if err := h.repo.Delete(r.Context(), id); err != nil {
			writeErr(w, statusFor(err), err.Error())
			return
		}
		h.changed(OpDeleted, model.Task{ID: id})
		w.WriteHeader(http.StatusNoContent)
		return

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
}
