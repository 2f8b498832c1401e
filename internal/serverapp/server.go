package serverapp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"taskdash/internal/config"
	"taskdash/internal/dashboard"
	"taskdash/internal/httpmw"
	"taskdash/internal/live"
	"taskdash/internal/model"
	"taskdash/internal/project"
	"taskdash/internal/storage"
	"taskdash/internal/store"
	"taskdash/internal/task"
	"taskdash/static"
)

type Options struct {
	Config *config.Config
	Stores *storage.Stores
	Logger *log.Logger
}

func NewHandler(opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Stores == nil {
		return nil, errors.New("stores are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	cfg := opts.Config

	addTarget, err := dashboard.ParseAddTarget(cfg.Dashboard.AddTarget)
	if err != nil {
		return nil, err
	}
	logAddTarget(opts.Logger, addTarget)

	mux := http.NewServeMux()

	staticHandler := http.FileServer(http.FS(staticfiles.EmbeddedFS()))
	if cfg.Server.DevStatic {
		staticHandler = http.FileServer(http.Dir(cfg.Server.StaticDir))
	}
	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "taskdash",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := opts.Stores.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "task storage unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "taskdash",
			"storage": opts.Stores.Driver,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	hub := live.NewHub(opts.Logger)
	mux.HandleFunc("/api/changes", hub.HandleWebSocket)

	taskHandler := task.NewHandler(opts.Stores.Tasks)
	taskHandler.SetChangeHook(func(op string, t model.Task) {
		hub.Publish(live.NewEvent("task", op, int64(t.ID)))
	})
	mux.HandleFunc("/api/tasks", taskHandler.TasksRoot)
	mux.HandleFunc("/api/tasks/", taskHandler.TasksSub)

	projectHandler := project.NewHandler(opts.Stores.Projects)
	projectHandler.SetCreateHook(func(p model.Project) {
		hub.Publish(live.NewEvent("project", task.OpCreated, int64(p.ID)))
	})
	mux.HandleFunc("/api/projects", projectHandler.Root)

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	local := store.NewLocal(opts.Stores.Tasks, opts.Stores.Projects, hub)
	sessions := dashboard.NewSessions(func() *dashboard.Controller {
		return dashboard.NewController(local, dashboard.Options{
			AddTarget: addTarget,
			Logger:    opts.Logger,
		})
	}, cfg.Dashboard.SessionTTL)
	dashboard.NewHandler(sessions, dashboard.HandlerOptions{
		Title:           cfg.Dashboard.Title,
		Greeting:        cfg.Dashboard.Greeting,
		LiveURL:         "/api/changes",
		MutationTimeout: cfg.Dashboard.MutationTimeout,
		Logger:          opts.Logger,
	}).Register(mux)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	return httpmw.Chain(
		mux,
		httpmw.WithRequestID,
		httpmw.WithAccessLog(opts.Logger, dashboard.SessionCookie),
		httpmw.WithRecover(opts.Logger),
	), nil
}

// Run opens storage, serves until ctx ends and then shuts down within
// the configured timeout.
func Run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	stores, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer stores.Close()

	handler, err := NewHandler(Options{Config: cfg, Stores: stores, Logger: logger})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s (storage=%s)", displayAddr(cfg.Server.Addr), stores.Driver)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func logAddTarget(logger *log.Logger, target dashboard.AddTarget) {
	if target == dashboard.AddProject {
		logger.Printf("[dashboard] \"Add New\" creates a project, not a task row (set dashboard.add_target: task to change)")
	}
}
