package viewer

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"rewardfeed/internal/components/assert"
	"rewardfeed/internal/components/telemetry"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	report_server_snapshot = "server.snapshot"
	report_server_render   = "server.render"
	report_server_serve    = "server.serve"
)

//go:embed page.html
var pageSource string

var page = template.Must(template.New("page").Parse(pageSource))

type Server struct {
	reader Reader
	tel    telemetry.API
}

func NewServer(reader Reader, tel telemetry.API) Server {
	assert.NotNil(tel)
	return Server{
		reader: reader,
		tel:    telemetry.NewScopedAPI("viewer", tel),
	}
}

func (s Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/api/links", s.links)
	r.Get("/", s.index)
	return r
}

func (s Server) links(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.reader.Snapshot(r.Context())
	if err != nil {
		s.tel.ReportBroken(report_server_snapshot, err)
		http.Error(w, "could not read links", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json")
	err = json.NewEncoder(w).Encode(snapshot)
	if err != nil {
		s.tel.ReportWarning(report_server_render, err)
	}
}

func (s Server) index(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.reader.Snapshot(r.Context())
	if err != nil {
		s.tel.ReportBroken(report_server_snapshot, err)
		http.Error(w, "could not read links", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	err = page.Execute(w, snapshot)
	if err != nil {
		s.tel.ReportWarning(report_server_render, err)
	}
}

// ListenAndServe serves the viewer on addr until ctx is cancelled.
func (s Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()
	s.tel.ReportDebug("listening", addr)

	select {
	case err := <-errs:
		s.tel.ReportBroken(report_server_serve, err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
