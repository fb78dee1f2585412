// Package api exposes the offline photo queue over HTTP for capture clients
// and the ops UI.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"roofing-photo-sync/internal/model"
	"roofing-photo-sync/internal/queue"
	"roofing-photo-sync/internal/service/photosync"
	"time"

	"github.com/gorilla/mux"
)

type PhotoQueue interface {
	Enqueue(ctx context.Context, req photosync.EnqueueRequest) (string, error)
	RetryFailed(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (queue.Stats, error)
	List(ctx context.Context, status string) ([]model.QueuedPhoto, error)
	Delete(ctx context.Context, localID string) error
	DeadLetters(ctx context.Context, localID string) ([]model.PhotoDeadLetter, error)
}

type SessionManager interface {
	SetToken(token string) error
	Clear()
}

type Server struct {
	router     *mux.Router
	httpServer *http.Server
	photos     PhotoQueue
	session    SessionManager
	online     func() bool
}

func NewServer(addr string, photos PhotoQueue, session SessionManager, online func() bool) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		photos:  photos,
		session: session,
		online:  online,
	}

	s.router.Use(loggingMiddleware)
	s.router.Use(recoveryMiddleware)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/photos", s.handleEnqueuePhoto).Methods(http.MethodPost)
	s.router.HandleFunc("/photos", s.handleListPhotos).Methods(http.MethodGet)
	s.router.HandleFunc("/photos/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/photos/retry-failed", s.handleRetryFailed).Methods(http.MethodPost)
	s.router.HandleFunc("/photos/{id}", s.handleDeletePhoto).Methods(http.MethodDelete)
	s.router.HandleFunc("/photos/{id}/dead-letters", s.handleDeadLetters).Methods(http.MethodGet)

	s.router.HandleFunc("/session", s.handleSetSession).Methods(http.MethodPut)
	s.router.HandleFunc("/session", s.handleClearSession).Methods(http.MethodDelete)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	slog.Info("Server HTTP berjalan", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Menghentikan server HTTP...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"online": s.online(),
	})
}
