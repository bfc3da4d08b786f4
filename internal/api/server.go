package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/orchestrator"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
)

// Deps are the core operations exposed over HTTP.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Logging      *services.LoggingService
	Analysis     *services.AnalysisService
	Reports      *services.ReportService
	Education    *services.EducationService
	Support      *services.SupportService
	Users        *services.UserService
	Reminders    *services.ReminderService
}

// Server is the chi-routed HTTP API.
type Server struct {
	router *chi.Mux
	port   string
	deps   Deps
	errors *apperrors.Handler
	logger *slog.Logger
	srv    *http.Server
}

// NewServer registers every route under /v1. The listener starts in Start.
func NewServer(port string, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
		errors: apperrors.NewHandler(logger),
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Route("/v1", func(r chi.Router) {
		r.Post("/messages", s.postMessage)
		r.Post("/education", s.postEducation)
		r.Post("/support", s.postSupport)

		r.Post("/users", s.postUser)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", s.getUser)
			r.Put("/targets", s.putTargets)
			r.Post("/readings", s.postReading)
			r.Get("/readings", s.listReadings)
			r.Get("/trend", s.getTrend)
			r.Post("/meals", s.postMeal)
			r.Post("/analyze", s.postAnalyze)
			r.Post("/reports", s.postReport)
			r.Get("/reports", s.listReports)
			r.Get("/reminders", s.listReminders)
			r.Post("/reminders", s.postReminder)
			r.Put("/reminders/{reminderID}", s.putReminder)
			r.Delete("/reminders/{reminderID}", s.deleteReminder)
		})
	})

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("API server shutting down")
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError logs err and answers with the user-safe message only.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.errors.Handle(r.Context(), err)

	status := http.StatusInternalServerError
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeExtraction:
		status = http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrorTypeExternal:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": apperrors.UserMessage(err)})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.NewValidationError("请求格式错误")
	}
	return nil
}

func userIDParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError("无效的用户ID")
	}
	return uint(id), nil
}
