package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"taskdash/internal/httpmw"
	"taskdash/internal/model"
)

// SessionCookie carries the dashboard session id.
const SessionCookie = "taskdash_session"

type HandlerOptions struct {
	Title           string
	Greeting        string
	LiveURL         string
	MutationTimeout time.Duration
	Logger          *log.Logger
}

// Handler serves the dashboard page and its form actions. Every action
// answers with 303 back to the page, which renders the controller state.
type Handler struct {
	sessions *Sessions
	opts     HandlerOptions
}

func NewHandler(sessions *Sessions, opts HandlerOptions) *Handler {
	if opts.Title == "" {
		opts.Title = "Dashboard"
	}
	if opts.MutationTimeout <= 0 {
		opts.MutationTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Handler{sessions: sessions, opts: opts}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard", h.Show)
	mux.HandleFunc("GET /dashboard/state", h.StateJSON)
	mux.HandleFunc("GET /dashboard/export", h.Export)
	mux.HandleFunc("POST /dashboard/edit", h.Edit)
	mux.HandleFunc("POST /dashboard/delete", h.Delete)
	mux.HandleFunc("POST /dashboard/add", h.Add)
	mux.HandleFunc("POST /dashboard/save", h.Save)
	mux.HandleFunc("POST /dashboard/confirm", h.Confirm)
	mux.HandleFunc("POST /dashboard/cancel", h.Cancel)
}

func (h *Handler) controller(w http.ResponseWriter, r *http.Request) *Controller {
	var id string
	if ck, err := r.Cookie(SessionCookie); err == nil {
		id = ck.Value
	}
	c, id, created := h.sessions.Get(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return c
}

func backToPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) mutationContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.opts.MutationTimeout)
}

// GET /dashboard
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	c := h.controller(w, r)
	// errors land in State().RefreshErr and are shown on the page
	_ = c.Refresh(r.Context())

	templ.Handler(Page(PageData{
		Title:     h.opts.Title,
		Greeting:  h.opts.Greeting,
		Columns:   Columns(),
		Tasks:     c.Tasks(),
		State:     c.State(),
		AddTarget: c.AddTarget(),
		LiveURL:   h.opts.LiveURL,
	})).ServeHTTP(w, r)
}

type stateResponse struct {
	Mode       string         `json:"mode"`
	Selected   *model.Task    `json:"selected"`
	Pending    []MutationKind `json:"pending"`
	Error      string         `json:"error,omitempty"`
	RefreshErr string         `json:"refresh_error,omitempty"`
	Tasks      []model.Task   `json:"tasks"`
}

// GET /dashboard/state
func (h *Handler) StateJSON(w http.ResponseWriter, r *http.Request) {
	c := h.controller(w, r)
	s := c.State()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(stateResponse{
		Mode:       s.Mode.String(),
		Selected:   s.Selected,
		Pending:    s.Pending,
		Error:      s.Err,
		RefreshErr: s.RefreshErr,
		Tasks:      c.Tasks(),
	})
}

// GET /dashboard/export?format=json|csv|pdf
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c := h.controller(w, r)
	if err := c.Refresh(r.Context()); err != nil {
		http.Error(w, "could not load tasks: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="tasks.`+string(format)+`"`)
	if err := Export(w, format, h.opts.Title, Columns(), c.Tasks()); err != nil {
		h.opts.Logger.Printf("dashboard: export %s (request %s): %v", format, httpmw.RequestIDFromContext(r.Context()), err)
	}
}

// rowFromForm resolves the task_id form value against the mirrored list,
// refreshing once if the row is not there yet.
func rowFromForm(r *http.Request, c *Controller) (model.Task, bool) {
	id, err := model.ParseTaskID(r.FormValue(model.FieldTaskID))
	if err != nil {
		return model.Task{}, false
	}
	if t, ok := c.Find(id); ok {
		return t, true
	}
	if err := c.Refresh(r.Context()); err != nil {
		return model.Task{}, false
	}
	return c.Find(id)
}

// POST /dashboard/edit
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	c := h.controller(w, r)
	t, ok := rowFromForm(r, c)
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	c.Edit(t)
	backToPage(w, r)
}

// POST /dashboard/delete
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c := h.controller(w, r)
	t, ok := rowFromForm(r, c)
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	c.Delete(t)
	backToPage(w, r)
}

// POST /dashboard/add
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	h.controller(w, r).AddNew()
	backToPage(w, r)
}

var formFields = []string{
	model.FieldTaskID,
	model.FieldTask,
	model.FieldMeeting,
	model.FieldProject,
	model.FieldName,
	model.FieldDescription,
}

// FieldsFromForm copies the known form inputs that were submitted.
func FieldsFromForm(r *http.Request) (model.Fields, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	f := model.Fields{}
	for _, k := range formFields {
		if vs, ok := r.PostForm[k]; ok && len(vs) > 0 {
			f[k] = vs[0]
		}
	}
	return f, nil
}

// POST /dashboard/save
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	c := h.controller(w, r)
	data, err := FieldsFromForm(r)
	if err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ctx, cancel := h.mutationContext(r)
	defer cancel()
	if err := c.Save(ctx, data); err != nil {
		var merr *MutationError
		if !errors.As(err, &merr) {
			h.opts.Logger.Printf("dashboard: save ignored (request %s): %v", httpmw.RequestIDFromContext(r.Context()), err)
		}
	}
	backToPage(w, r)
}

// POST /dashboard/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	c := h.controller(w, r)
	ctx, cancel := h.mutationContext(r)
	defer cancel()
	if err := c.ConfirmDelete(ctx); err != nil {
		var merr *MutationError
		if !errors.As(err, &merr) {
			h.opts.Logger.Printf("dashboard: confirm ignored (request %s): %v", httpmw.RequestIDFromContext(r.Context()), err)
		}
	}
	backToPage(w, r)
}

// POST /dashboard/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.controller(w, r).Cancel()
	backToPage(w, r)
}
