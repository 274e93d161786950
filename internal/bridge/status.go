package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"dabbridge/internal/logger"
)

// Status is the snapshot served on /status
type Status struct {
	DeviceID         string `json:"device_id"`
	Broker           string `json:"broker"`
	Connected        bool   `json:"connected"`
	TelemetryRunning bool   `json:"telemetry_running"`
	Handled          int64  `json:"handled"`
	Uptime           string `json:"uptime"`
}

// StatusServer provides the local HTTP health and metrics endpoints
type StatusServer struct {
	status func() Status
	server *http.Server
	logger zerolog.Logger
}

// NewStatusServer creates a status server listening on listen
func NewStatusServer(listen string, status func() Status) *StatusServer {
	s := &StatusServer{
		status: status,
		logger: logger.Component("status"),
	}

	s.server = &http.Server{
		Addr:              listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Router returns the endpoint routes
func (s *StatusServer) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return router
}

// Start serves in the background
func (s *StatusServer) Start() {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("Starting status server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Status server error")
		}
	}()
}

// Stop shuts the server down, waiting at most timeout for open requests
func (s *StatusServer) Stop(timeout time.Duration) error {
	s.logger.Info().Msg("Stopping status server")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.status()
	code := http.StatusOK
	state := "healthy"
	if !status.Connected {
		code = http.StatusServiceUnavailable
		state = "disconnected"
	}
	s.writeJSON(w, code, map[string]interface{}{"status": state})
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *StatusServer) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write response")
	}
}
