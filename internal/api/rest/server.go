package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the REST API server
type Server struct {
	port    int
	server  *http.Server
	handler http.Handler
	api     *Handler
}

// NewServer creates a new REST API server
func NewServer(port int, predictions PredictionService, allowedOrigins []string, logger *zap.SugaredLogger) *Server {
	handler := NewHandler(predictions, logger)

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RequestIDMiddleware)
	router.Use(LoggingMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))

	// Health check and metrics
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Predictions
	api.HandleFunc("/predict", handler.PostPredict).Methods("POST")
	api.HandleFunc("/predict", handler.GetPredict).Methods("GET")

	// Live feed views
	api.HandleFunc("/live/players", handler.GetLivePlayers).Methods("GET")
	api.HandleFunc("/live/teams", handler.GetLiveTeams).Methods("GET")

	// CORS wraps the router so preflight requests never reach method matching.
	root := cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(router)

	return &Server{
		port:    port,
		handler: root,
		api:     handler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           root,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ReportStatus adds a component's Status to the /health body under name.
// Call it before Start.
func (s *Server) ReportStatus(name string, reporter StatusReporter) {
	s.api.reporters[name] = reporter
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
