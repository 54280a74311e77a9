package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// StatusServer exposes the scheduler's last run over HTTP for operators.
type StatusServer struct {
	sched *Scheduler
	srv   *http.Server
}

// NewStatusServer builds the operator endpoint on addr.
func NewStatusServer(addr string, sched *Scheduler) *StatusServer {
	s := &StatusServer{sched: sched}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled.
func (s *StatusServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down status server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("status server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "scheduler: status server")
	}
	return nil
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusResponse struct {
	LastRunID    string    `json:"last_run_id,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
	SoldRead     int       `json:"sold_read"`
	SoldFailed   int       `json:"sold_failed"`
	CleanRead    int       `json:"clean_read"`
	CleanFailed  int       `json:"clean_failed"`
	ElapsedMilli int64     `json:"elapsed_ms"`
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.sched.LastRun()

	resp := statusResponse{FinishedAt: status.FinishedAt}
	if status.Summary != nil {
		resp.LastRunID = status.Summary.RunID.String()
		resp.SoldRead = status.Summary.Sold.Read
		resp.SoldFailed = status.Summary.Sold.Failed
		resp.CleanRead = status.Summary.Clean.Read
		resp.CleanFailed = status.Summary.Clean.Failed
		resp.ElapsedMilli = status.Summary.Elapsed.Milliseconds()
	}
	if status.Err != nil {
		resp.LastError = status.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zap.L().Warn("status encode failed", zap.Error(err))
	}
}
