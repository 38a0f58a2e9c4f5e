package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/CoachHub/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/CoachHub/internal/api/middlewares"
	"github.com/markdave123-py/CoachHub/internal/config"
	"github.com/markdave123-py/CoachHub/internal/logging"
	"github.com/markdave123-py/CoachHub/internal/services"
)

// Services are the use cases the HTTP layer exposes.
type Services struct {
	Users    *services.UserService
	Sessions *services.SessionService
	Analysis *services.AnalysisService
	Files    *services.FileService
	Notes    *services.NoteService
	Actions  *services.ActionService
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewRouter builds and wires all routes.
func NewRouter(cfg *config.Config, svc *Services) http.Handler {
	userHandler := handlers.NewUserHandler(svc.Users)
	sessionHandler := handlers.NewSessionHandler(svc.Sessions, svc.Analysis)
	fileHandler := handlers.NewFileHandler(svc.Files)
	noteHandler := handlers.NewNoteHandler(svc.Notes)
	actionHandler := handlers.NewActionHandler(svc.Actions)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appMiddleware.ActingAsHeader},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Get("/health", handlers.Health)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware([]byte(cfg.JWTSecret)))

			protected.Get("/me", userHandler.Me)

			protected.Route("/sessions", func(s chi.Router) {
				s.Get("/", sessionHandler.List)
				s.Post("/", sessionHandler.Create)
				s.Post("/sync-calendar", sessionHandler.SyncCalendar)
				s.Get("/{id}", sessionHandler.Get)
				s.Delete("/{id}", sessionHandler.Delete)
				s.Post("/{id}/complete", sessionHandler.Complete)
				s.Post("/{id}/backfill", sessionHandler.Backfill)
				s.Post("/{id}/transcript", sessionHandler.UploadTranscript)
				s.Get("/{id}/analysis", sessionHandler.Analysis)
				s.Post("/{id}/analysis", sessionHandler.GenerateAnalysis)
			})

			protected.Route("/files", func(f chi.Router) {
				f.Get("/", fileHandler.List)
				f.Post("/", fileHandler.Upload)
				f.Get("/{id}", fileHandler.Get)
				f.Patch("/{id}/sharing", fileHandler.UpdateSharing)
				f.Delete("/{id}", fileHandler.Delete)
			})

			protected.Route("/notes", func(n chi.Router) {
				n.Get("/", noteHandler.List)
				n.Post("/", noteHandler.Create)
				n.Patch("/{id}", noteHandler.Update)
				n.Delete("/{id}", noteHandler.Delete)
			})

			protected.Route("/actions", func(a chi.Router) {
				a.Get("/", actionHandler.List)
				a.Post("/", actionHandler.Create)
				for _, step := range []string{"apply", "dismiss", "request-approval", "approve", "reject"} {
					a.Post("/{id}/"+step, actionHandler.Transition(step))
				}
			})
		})
	})

	return r
}

func NewServer(cfg *config.Config, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	logging.Logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
