package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdash/internal/model"
)

type dashClient struct {
	t      *testing.T
	mux    *http.ServeMux
	cookie *http.Cookie
}

func newDashClient(t *testing.T, store *fakeStore, target AddTarget) *dashClient {
	t.Helper()
	sessions := NewSessions(func() *Controller {
		return NewController(store, Options{AddTarget: target, Logger: quietLogger()})
	}, time.Hour)
	mux := http.NewServeMux()
	NewHandler(sessions, HandlerOptions{Title: "Dashboard", Logger: quietLogger()}).Register(mux)
	return &dashClient{t: t, mux: mux}
}

func (c *dashClient) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.mux.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rr
}

func (c *dashClient) state() stateResponse {
	c.t.Helper()
	rr := c.do(http.MethodGet, "/dashboard/state", nil)
	require.Equal(c.t, http.StatusOK, rr.Code)
	var s stateResponse
	require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &s))
	return s
}

func TestHandler_ShowSetsSessionAndRenders(t *testing.T) {
	store := newFakeStore(model.Task{ID: 1, Task: "Draft agenda", Meeting: "M1", Project: "P1"})
	c := newDashClient(t, store, AddProject)

	rr := c.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)
	assert.Contains(t, rr.Body.String(), "Draft agenda")
	assert.Equal(t, 1, store.ListCount())
}

func TestHandler_DeleteFlow(t *testing.T) {
	store := newFakeStore(model.Task{ID: 1, Task: "Draft agenda"})
	c := newDashClient(t, store, AddProject)
	c.do(http.MethodGet, "/dashboard", nil)

	rr := c.do(http.MethodPost, "/dashboard/delete", url.Values{"task_id": {"1"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	s := c.state()
	assert.Equal(t, "deleting", s.Mode)
	require.NotNil(t, s.Selected)
	assert.Equal(t, model.TaskID(1), s.Selected.ID)

	rr = c.do(http.MethodPost, "/dashboard/confirm", url.Values{})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	s = c.state()
	assert.Equal(t, "idle", s.Mode)
	assert.Empty(t, s.Tasks)
}

func TestHandler_EditSaveFlow(t *testing.T) {
	store := newFakeStore(model.Task{ID: 4, Task: "Old", Meeting: "M1"})
	c := newDashClient(t, store, AddProject)

	// no prior page view: the row is found by refreshing
	rr := c.do(http.MethodPost, "/dashboard/edit", url.Values{"task_id": {"4"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "editing", c.state().Mode)

	page := c.do(http.MethodGet, "/dashboard", nil)
	assert.Contains(t, page.Body.String(), `id="edit-form"`)

	rr = c.do(http.MethodPost, "/dashboard/save", url.Values{
		"task_id": {"4"},
		"task":    {"New"},
		"meeting": {"M1"},
		"project": {""},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	s := c.state()
	assert.Equal(t, "idle", s.Mode)
	require.Len(t, s.Tasks, 1)
	assert.Equal(t, "New", s.Tasks[0].Task)
}

func TestHandler_AddCancel(t *testing.T) {
	store := newFakeStore()
	c := newDashClient(t, store, AddProject)

	c.do(http.MethodPost, "/dashboard/add", url.Values{})
	assert.Equal(t, "adding", c.state().Mode)

	c.do(http.MethodPost, "/dashboard/cancel", url.Values{})
	assert.Equal(t, "idle", c.state().Mode)
	assert.Empty(t, store.Calls())
}

func TestHandler_AddProjectSave(t *testing.T) {
	store := newFakeStore()
	c := newDashClient(t, store, AddProject)

	c.do(http.MethodPost, "/dashboard/add", url.Values{})
	c.do(http.MethodPost, "/dashboard/save", url.Values{"name": {"New Project"}})

	calls := store.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, MutationCreateProject, calls[0].Kind)
	assert.Equal(t, model.Fields{"name": "New Project"}, calls[0].Fields)
	assert.Equal(t, "idle", c.state().Mode)
}

func TestHandler_FailedSaveShowsError(t *testing.T) {
	store := newFakeStore()
	store.fail[MutationCreateProject] = assert.AnError
	c := newDashClient(t, store, AddProject)

	c.do(http.MethodPost, "/dashboard/add", url.Values{})
	rr := c.do(http.MethodPost, "/dashboard/save", url.Values{"name": {"X"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	s := c.state()
	assert.Equal(t, "adding", s.Mode)
	assert.Contains(t, s.Error, "create_project failed")

	page := c.do(http.MethodGet, "/dashboard", nil)
	assert.Contains(t, page.Body.String(), `role="alert"`)
}

func TestHandler_EditUnknownRow(t *testing.T) {
	c := newDashClient(t, newFakeStore(), AddProject)
	rr := c.do(http.MethodPost, "/dashboard/edit", url.Values{"task_id": {"99"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = c.do(http.MethodPost, "/dashboard/delete", url.Values{"task_id": {"abc"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_SessionsAreIsolated(t *testing.T) {
	store := newFakeStore(model.Task{ID: 1, Task: "A"})
	a := newDashClient(t, store, AddProject)
	b := &dashClient{t: t, mux: a.mux}

	a.do(http.MethodPost, "/dashboard/add", url.Values{})
	assert.Equal(t, "adding", a.state().Mode)
	assert.Equal(t, "idle", b.state().Mode)
}

func TestHandler_Export(t *testing.T) {
	store := newFakeStore(model.Task{ID: 1, Task: "Draft agenda", Meeting: "M1", Project: "P1"})
	c := newDashClient(t, store, AddProject)

	rr := c.do(http.MethodGet, "/dashboard/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "1,Draft agenda,M1,P1")

	rr = c.do(http.MethodGet, "/dashboard/export?format=doc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
