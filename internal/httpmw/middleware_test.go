package httpmw

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &line))
	return line
}

func TestWithRequestID_GeneratesUUID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
}

func TestWithRequestID_KeepsIncoming(t *testing.T) {
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
}

func TestSurface(t *testing.T) {
	cases := map[string]string{
		"/api/tasks":        "api",
		"/api/tasks/3":      "api",
		"/api/changes":      "feed",
		"/dashboard":        "dashboard",
		"/dashboard/save":   "dashboard",
		"/dashboards":       "other",
		"/static/css/a.css": "static",
		"/healthz":          "health",
		"/readyz":           "health",
		"/":                 "other",
	}
	for path, want := range cases {
		assert.Equal(t, want, Surface(path), path)
	}
}

func TestAccessLog_RecordsDashboardActionAndSession(t *testing.T) {
	var buf bytes.Buffer
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}), WithRequestID, WithAccessLog(log.New(&buf, "", 0), "taskdash_session"))

	req := httptest.NewRequest(http.MethodPost, "/dashboard/confirm", nil)
	req.AddCookie(&http.Cookie{Name: "taskdash_session", Value: "0123456789abcdef"})
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := lastLine(t, &buf)
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "dashboard", line["surface"])
	assert.Equal(t, "confirm", line["action"])
	assert.Equal(t, "01234567", line["session"])
	assert.Equal(t, "10.0.0.7", line["remote"])
	assert.Equal(t, float64(http.StatusSeeOther), line["status"])
	assert.NotEmpty(t, line["request_id"])

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	line = lastLine(t, &buf)
	assert.NotContains(t, line, "action")
	assert.NotContains(t, line, "session")
}

func TestChain_AccessLogAndRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	mux.HandleFunc("/dashboard/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	})
	h := Chain(mux, WithRequestID, WithAccessLog(logger, ""), WithRecover(logger))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	line := lastLine(t, &buf)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, float64(2), line["bytes"])

	buf.Reset()
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
	assert.Contains(t, buf.String(), "handler_panic")
	assert.Equal(t, "error", lastLine(t, &buf)["level"])

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal server error")
	assert.NotContains(t, rr.Header().Get("Content-Type"), "json")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAccessLog_WebSocketUpgradePassesThrough(t *testing.T) {
	var buf lockedBuffer
	upgrader := websocket.Upgrader{}
	feed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		_ = conn.Close()
	})
	srv := httptest.NewServer(Chain(feed, WithRequestID, WithAccessLog(log.New(&buf, "", 0), "")))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/changes", nil)
	require.NoError(t, err)
	defer conn.Close()
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg))

	require.Eventually(t, func() bool { return strings.Contains(buf.String(), `"upgraded":true`) }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, buf.String(), `"surface":"feed"`)
	assert.Contains(t, buf.String(), `"status":101`)
}
