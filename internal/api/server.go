// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/plant-scanner/internal/logging"
	"github.com/plant-scanner/internal/models"
	"github.com/plant-scanner/internal/recognizer"
	"github.com/plant-scanner/internal/service"
)

// Service interfaces for dependency injection and testing

// AccountServiceInterface defines the interface for account operations
type AccountServiceInterface interface {
	Register(ctx context.Context, input *service.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, identifier, password string) (string, *models.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfilePicture(ctx context.Context, userID, uri string) error
}

// ScanServiceInterface defines the interface for scan ingestion operations
type ScanServiceInterface interface {
	Ingest(ctx context.Context, input *service.IngestInput) (*service.IngestResult, error)
	GetHistory(ctx context.Context, userID string) ([]*models.PlantRecord, error)
	GetCollection(ctx context.Context, userID string) ([]*models.PlantRecord, error)
}

// LeaderboardServiceInterface defines the interface for leaderboard reads
type LeaderboardServiceInterface interface {
	Compute(ctx context.Context) ([]*models.Standing, error)
}

// RecognizerInterface defines the interface for the species recognizer
type RecognizerInterface interface {
	Identify(ctx context.Context, image io.Reader, filename string) (*recognizer.Identification, error)
}

// Server represents the HTTP API server.
type Server struct {
	router             *mux.Router
	httpServer         *http.Server
	accountService     AccountServiceInterface
	scanService        ScanServiceInterface
	leaderboardService LeaderboardServiceInterface
	recognizerClient   RecognizerInterface
	tokens             TokenVerifier
	config             *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond int
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	accountService AccountServiceInterface,
	scanService ScanServiceInterface,
	leaderboardService LeaderboardServiceInterface,
	recognizerClient RecognizerInterface,
	tokens TokenVerifier,
) *Server {
	s := &Server{
		router:             mux.NewRouter(),
		accountService:     accountService,
		scanService:        scanService,
		leaderboardService: leaderboardService,
		recognizerClient:   recognizerClient,
		tokens:             tokens,
		config:             config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Middleware order matters: recovery wraps everything, rate limiting
	// runs after CORS so preflights are never throttled.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Public endpoints
	api.HandleFunc("/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")

	// Authenticated endpoints
	authed := api.NewRoute().Subrouter()
	authed.Use(AuthMiddleware(s.tokens))
	authed.HandleFunc("/me", s.handleMe).Methods("GET")
	authed.HandleFunc("/user/change-password", s.handleChangePassword).Methods("POST")
	authed.HandleFunc("/user/profile-picture", s.handleUpdateProfilePicture).Methods("PUT")
	authed.HandleFunc("/identify", s.handleIdentify).Methods("POST")
	authed.HandleFunc("/history", s.handleGetHistory).Methods("GET")
	authed.HandleFunc("/history", s.handleIngest).Methods("POST")
	authed.HandleFunc("/collection", s.handleGetCollection).Methods("GET")
	// The mobile app historically posted scans to /collection as well;
	// both routes feed the same pipeline with the same dedup rule.
	authed.HandleFunc("/collection", s.handleIngest).Methods("POST")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "plant-scanner",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
