// Package httpmw wraps the taskdash mux: every request gets an id, panics
// become 500s, and one JSON line per request records which surface was hit
// (api, dashboard, feed, static, health), the dashboard action for form
// posts and a short tag of the dashboard session.
package httpmw

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

// Chain applies middlewares so the first one listed sees the request first.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	if h == nil {
		h = http.NotFoundHandler()
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithRequestID keeps a caller-supplied X-Request-Id or mints a uuid, and
// echoes it on the response.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// Surface names the part of taskdash a path belongs to.
func Surface(path string) string {
	switch {
	case path == "/api/changes":
		return "feed"
	case strings.HasPrefix(path, "/api/"):
		return "api"
	case path == "/dashboard" || strings.HasPrefix(path, "/dashboard/"):
		return "dashboard"
	case strings.HasPrefix(path, "/static/"):
		return "static"
	case path == "/healthz" || path == "/readyz":
		return "health"
	default:
		return "other"
	}
}

// dashboardAction is the form action of a dashboard POST (edit, save,
// confirm, ...), empty for anything else.
func dashboardAction(r *http.Request) string {
	if r.Method != http.MethodPost {
		return ""
	}
	action, ok := strings.CutPrefix(r.URL.Path, "/dashboard/")
	if !ok {
		return ""
	}
	return action
}

// sessionTag is a short prefix of the session cookie, enough to follow one
// browser through the log without writing the full id.
func sessionTag(r *http.Request, cookie string) string {
	if cookie == "" {
		return ""
	}
	ck, err := r.Cookie(cookie)
	if err != nil {
		return ""
	}
	v := strings.TrimSpace(ck.Value)
	if len(v) > 8 {
		v = v[:8]
	}
	return v
}

type panicEntry struct {
	TS        string `json:"ts"`
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Panic     string `json:"panic"`
	Stack     string `json:"stack"`
}

// WithRecover turns a handler panic into a 500. API and dashboard state
// callers get a JSON error body.
func WithRecover(logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				writeLine(logger, panicEntry{
					TS:        time.Now().UTC().Format(time.RFC3339Nano),
					Level:     "error",
					Msg:       "handler_panic",
					RequestID: RequestIDFromContext(r.Context()),
					Method:    r.Method,
					Path:      r.URL.Path,
					Panic:     fmt.Sprint(rec),
					Stack:     string(debug.Stack()),
				})
				if Surface(r.URL.Path) == "api" || r.URL.Path == "/dashboard/state" {
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type accessEntry struct {
	TS         string `json:"ts"`
	Level      string `json:"level"`
	Msg        string `json:"msg"`
	RequestID  string `json:"request_id"`
	Surface    string `json:"surface"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Action     string `json:"action,omitempty"`
	Session    string `json:"session,omitempty"`
	Status     int    `json:"status"`
	Bytes      int    `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	Remote     string `json:"remote"`
	Upgraded   bool   `json:"upgraded,omitempty"`
}

// WithAccessLog writes one line per request. sessionCookie names the
// dashboard session cookie; pass "" to leave sessions out of the log.
func WithAccessLog(logger *log.Logger, sessionCookie string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := "info"
			if rec.status >= http.StatusInternalServerError {
				level = "error"
			}
			writeLine(logger, accessEntry{
				TS:         start.UTC().Format(time.RFC3339Nano),
				Level:      level,
				Msg:        "request",
				RequestID:  RequestIDFromContext(r.Context()),
				Surface:    Surface(r.URL.Path),
				Method:     r.Method,
				Path:       r.URL.Path,
				Action:     dashboardAction(r),
				Session:    sessionTag(r, sessionCookie),
				Status:     rec.status,
				Bytes:      rec.bytes,
				DurationMS: time.Since(start).Milliseconds(),
				Remote:     remoteAddr(r),
				Upgraded:   rec.hijacked,
			})
		})
	}
}

// recorder captures status and size. It forwards Hijack so the change feed
// can upgrade to a websocket through the log middleware.
type recorder struct {
	http.ResponseWriter
	status   int
	bytes    int
	hijacked bool
}

func (w *recorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recorder) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("httpmw: connection cannot be hijacked")
	}
	conn, rw, err := hj.Hijack()
	if err == nil {
		w.status = http.StatusSwitchingProtocols
		w.hijacked = true
	}
	return conn, rw, err
}

func (w *recorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// remoteAddr prefers the first X-Forwarded-For hop over the socket peer.
func remoteAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeLine(logger *log.Logger, entry any) {
	b, err := json.Marshal(entry)
	if err != nil {
		logger.Printf(`{"level":"error","msg":"log_encode_failed","error":%q}`, err.Error())
		return
	}
	logger.Print(string(b))
}
