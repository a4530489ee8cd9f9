package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Queue      *QueueHandler
	Slots      *SlotHandler
	Daily      *DailyHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Queue != nil || cfg.Slots != nil {
		mux.HandleFunc("/groups/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/groups/")
			groupID, action, _ := strings.Cut(rest, "/")
			if groupID == "" {
				http.NotFound(w, r)
				return
			}

			ctx := ContextWithGroupID(r.Context(), groupID)
			r = r.WithContext(ctx)

			switch action {
			case "queue":
				if cfg.Queue == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Queue.Initialize(w, r)
			case "queue/regenerate":
				if cfg.Queue == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Queue.Regenerate(w, r)
			case "slots":
				if cfg.Slots == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Slots.List(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Daily != nil {
		mux.HandleFunc("/daily-runs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Daily.Run(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
