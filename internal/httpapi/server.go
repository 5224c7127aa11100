package httpapi

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
	apimw "github.com/hamed0406/uptimeworker/internal/httpapi/middleware"
	"github.com/hamed0406/uptimeworker/internal/logbook"
	"github.com/hamed0406/uptimeworker/internal/monitor"
	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/scheduler"
)

// Cycles is the scheduler surface the API needs.
type Cycles interface {
	TriggerGather() error
	TriggerRotate() error
	LastGather() (monitor.CycleReport, bool)
	LastRotation() (logbook.RotationReport, bool)
}

type Logs interface {
	List(includeArchives bool) ([]string, error)
	Decompress(archiveID string) ([]byte, error)
}

type Server struct {
	Logger *zap.Logger
	Checks repo.CheckStore
	Cycles Cycles
	Logs   Logs
}

func NewServer(l *zap.Logger, checks repo.CheckStore, cycles Cycles, logs Logs) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Checks: checks, Cycles: cycles, Logs: logs}
}

// Router wires read routes behind public-or-admin keys and cycle triggers
// behind admin keys, each with its own per-IP rate limit.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(apimw.AccessLog(s.Logger))
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(pubRPM, pubBurst))
		r.Use(apimw.RequireAny(keys))
		r.Get("/api/checks", s.handleListChecks)
		r.Get("/api/cycles/last", s.handleLastCycles)
		r.Get("/api/logs", s.handleListLogs)
		r.Get("/api/logs/{archiveID}", s.handleReadArchive)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(admRPM, admBurst))
		r.Use(apimw.RequireAdmin(keys))
		r.Post("/api/cycles/gather", s.handleTrigger("gather", s.Cycles.TriggerGather))
		r.Post("/api/cycles/rotate", s.handleTrigger("rotation", s.Cycles.TriggerRotate))
	})

	return r
}

type checkView struct {
	ID          domain.CheckID `json:"id"`
	Target      string         `json:"target,omitempty"`
	Method      domain.Method  `json:"method,omitempty"`
	State       domain.State   `json:"state,omitempty"`
	LastChecked *time.Time     `json:"lastChecked,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Checks.List(r.Context())
	if err != nil {
		s.Logger.Warn("api_list_checks_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	out := make([]checkView, 0, len(ids))
	for _, id := range ids {
		c, err := s.Checks.Read(r.Context(), id)
		if err != nil {
			out = append(out, checkView{ID: id, Error: err.Error()})
			continue
		}
		out = append(out, checkView{
			ID:          c.ID,
			Target:      c.Target(),
			Method:      c.Method,
			State:       c.State,
			LastChecked: c.LastCheckedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLastCycles(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Gather   *monitor.CycleReport    `json:"gather"`
		Rotation *logbook.RotationReport `json:"rotation"`
	}{}
	if g, ok := s.Cycles.LastGather(); ok {
		resp.Gather = &g
	}
	if rot, ok := s.Cycles.LastRotation(); ok {
		resp.Rotation = &rot
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	archives, _ := strconv.ParseBool(r.URL.Query().Get("archives"))
	ids, err := s.Logs.List(archives)
	if err != nil {
		s.Logger.Warn("api_list_logs_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": ids})
}

func (s *Server) handleReadArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "archiveID")
	raw, err := s.Logs.Decompress(id)
	switch {
	case errors.Is(err, logbook.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid archive id")
		return
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusNotFound, "archive not found")
		return
	case err != nil:
		s.Logger.Warn("api_read_archive_error", zap.String("archive_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "archive unreadable")
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleTrigger(name string, trigger func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch err := trigger(); {
		case errors.Is(err, scheduler.ErrBusy):
			writeError(w, http.StatusConflict, name+" cycle already running")
		case errors.Is(err, scheduler.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, "shutting down")
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			s.Logger.Info("api_cycle_triggered", zap.String("cycle", name))
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "cycle": name})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
