package server

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/textsync/internal/router"
)

//go:embed templates/index.html
var templates embed.FS

// StateSource provides read-only snapshots of the shared state.
type StateSource interface {
	Snapshot() router.Snapshot
}

// Server serves the public endpoints.
type Server struct {
	logger *slog.Logger
	state  StateSource
	ws     http.Handler
	page   *template.Template
	mux    chi.Router
}

// New creates the public server. ws handles WebSocket upgrades on /ws.
func New(state StateSource, ws http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger: logger,
		state:  state,
		ws:     ws,
		page:   template.Must(template.ParseFS(templates, "templates/index.html")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/api/state", s.handleState)
	r.Handle("/ws", ws)

	s.mux = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// pageData is what the initial page template renders.
type pageData struct {
	Content         string
	Notebooks       []string
	CurrentNotebook string
	MaxSize         int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.page.Execute(w, pageData{
		Content:         snap.Content,
		Notebooks:       snap.Notebooks,
		CurrentNotebook: snap.Active,
		MaxSize:         snap.MaxSize,
	})
	if err != nil {
		s.logger.Error("render index", "error", err, "request_id", middleware.GetReqID(r.Context()))
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
