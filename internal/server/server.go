// Package server wires the application together: storage, services,
// handlers, middleware, and routes. It is the composition root — every
// dependency is assembled here and nowhere else.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/knowloop/internal/auth"
	"github.com/sakif/knowloop/internal/handler"
	"github.com/sakif/knowloop/internal/middleware"
	"github.com/sakif/knowloop/internal/payment"
	sqliteRepo "github.com/sakif/knowloop/internal/repository/sqlite"
	"github.com/sakif/knowloop/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port            int
	DBPath          string
	JWTSecret       string
	StripeSecretKey string
	CORSOrigin      string
}

// Server owns the router and the resources that must be released on
// shutdown (the database connection).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain: database → stores → services →
// handlers → routes. Each layer receives interfaces, not concrete types, so
// tests can substitute mocks at any seam.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	corsOrigin := s.config.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "http://localhost:5173"
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// Stores
	userStore := sqliteRepo.NewUserStore(s.db)
	sessionStore := sqliteRepo.NewSessionStore(s.db)
	bookingStore := sqliteRepo.NewBookingStore(s.db)
	materialStore := sqliteRepo.NewMaterialStore(s.db)
	noteStore := sqliteRepo.NewNoteStore(s.db)
	transactionStore := sqliteRepo.NewTransactionStore(s.db)

	guard := auth.NewGuard(userStore)
	gateway := payment.NewStripeGateway(s.config.StripeSecretKey)

	// Services
	userService := service.NewUserService(userStore, s.logger)
	sessionService := service.NewSessionService(sessionStore, s.logger)
	bookingService := service.NewBookingService(bookingStore, sessionStore, materialStore, s.logger)
	materialService := service.NewMaterialService(materialStore, sessionStore, s.logger)
	noteService := service.NewNoteService(noteStore, s.logger)
	paymentService := service.NewPaymentService(gateway, sessionStore, bookingStore, transactionStore, s.logger)

	// Handlers
	userHandler := handler.NewUserHandler(userService, guard, s.logger)
	sessionHandler := handler.NewSessionHandler(sessionService, guard, s.logger)
	bookingHandler := handler.NewBookingHandler(bookingService, s.logger)
	materialHandler := handler.NewMaterialHandler(materialService, guard, s.logger)
	noteHandler := handler.NewNoteHandler(noteService, s.logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		// Public reads: the session catalogue and tutor directory.
		r.Get("/sessions", sessionHandler.HandleList)
		r.Get("/sessions/{id}", sessionHandler.HandleGetByID)
		r.Get("/tutors", userHandler.HandleListTutors)

		// Everything else requires a verified identity.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			// Accounts
			r.Post("/users", userHandler.HandleSignIn)
			r.Get("/users", userHandler.HandleSearch)
			r.Get("/users/{email}", userHandler.HandleGetByEmail)
			r.Get("/users/{email}/role", userHandler.HandleGetRole)
			r.Patch("/users/{email}", userHandler.HandleUpdateProfile)
			r.Patch("/users/{id}/role", userHandler.HandleChangeRole)

			// Session lifecycle
			r.Post("/sessions", sessionHandler.HandleCreate)
			r.Patch("/sessions/{id}/approve", sessionHandler.HandleApprove)
			r.Patch("/sessions/{id}/reject", sessionHandler.HandleReject)
			r.Patch("/sessions/{id}/resend", sessionHandler.HandleResend)
			r.Patch("/sessions/{id}/fee", sessionHandler.HandleUpdateFee)
			r.Delete("/sessions/{id}", sessionHandler.HandleDelete)
			r.Post("/sessions/{id}/reviews", sessionHandler.HandleAddReview)

			// Bookings and gated materials
			r.Post("/booked-sessions", bookingHandler.HandleBook)
			r.Get("/booked-sessions", bookingHandler.HandleList)
			r.Get("/booked-sessions/materials", bookingHandler.HandleMaterials)
			r.Get("/booked-sessions/{sessionId}/status", bookingHandler.HandleStatus)
			r.Delete("/booked-sessions/{sessionId}", bookingHandler.HandleCancel)

			// Tutor materials + admin moderation
			r.Post("/materials", materialHandler.HandleCreate)
			r.Get("/materials", materialHandler.HandleListMine)
			r.Get("/materials/all", materialHandler.HandleListAll)
			r.Patch("/materials/{id}", materialHandler.HandleUpdate)
			r.Delete("/materials/{id}", materialHandler.HandleDelete)
			r.Delete("/materials/{id}/admin", materialHandler.HandleAdminDelete)

			// Notes
			r.Post("/notes", noteHandler.HandleCreate)
			r.Get("/notes", noteHandler.HandleList)
			r.Patch("/notes/{id}", noteHandler.HandleUpdate)
			r.Delete("/notes/{id}", noteHandler.HandleDelete)

			// Payments
			r.Post("/payments/intent", paymentHandler.HandleCreateIntent)
			r.Post("/payments/confirm", paymentHandler.HandleConfirm)
			r.Get("/payments/transactions", paymentHandler.HandleListTransactions)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
