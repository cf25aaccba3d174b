package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/open-feature/flagdemo/pkg/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

const (
	EvaluatePath = "/api/vwo/evaluate"
	LogsPath     = "/api/vwo/logs"

	msgMethodNotAllowed = "Method not allowed"
	msgInternal         = "Internal server error"
	msgInvalidUserID    = "User ID is required and must be a non-empty string"
)

type HTTPServiceConfiguration struct {
	Port        int32
	CORSOrigins []string
	FlagKey     string
}

type HTTPService struct {
	HTTPServiceConfiguration *HTTPServiceConfiguration
	// Registry backs /metrics. A fresh one is used when nil.
	Registry *prometheus.Registry
}

type Server struct {
	flags   FlagEvaluator
	flagKey string
}

type logsResponse struct {
	Success bool         `json:"success"`
	Logs    []logs.Entry `json:"logs"`
	Error   string       `json:"error,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type evaluateRequest struct {
	UserID interface{} `json:"userId"`
}

// NewRouter builds the routes of the demo around flags.
func NewRouter(flags FlagEvaluator, cfg *HTTPServiceConfiguration, reg *prometheus.Registry) http.Handler {
	if cfg == nil {
		cfg = &HTTPServiceConfiguration{}
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := Server{flags: flags, flagKey: cfg.FlagKey}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(LogMiddleware)
	router.Use(newRequestMetrics(reg).middleware)
	router.Use(RecoverMiddleware)
	// with no origins configured the API stays same-origin only
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler)
	}
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed})
	})

	router.Get("/", s.Index)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Post(EvaluatePath, s.Evaluate)
	router.Get(LogsPath, s.Logs)

	return router
}

// Evaluate runs the flag evaluation for the posted user id and tracks the event.
func (s Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("invalid evaluate body: %v", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidUserID})
		return
	}
	userID, ok := req.UserID.(string)
	if !ok || strings.TrimSpace(userID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidUserID})
		return
	}

	ctx := logs.NewContext(r.Context(), logs.NewCollector())
	log.Debugf("evaluating flag for user: %s", userID)

	result := s.flags.EvaluateFlag(ctx, userID)
	if !result.Success {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	if track := s.flags.TrackEvent(ctx, userID); !track.Success {
		// tracking is best effort, the evaluation result still goes out
		log.Warnf("event tracking failed for user %s: %s", userID, track.Error)
	}

	writeJSON(w, http.StatusOK, result)
}

func (s Server) Logs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, logsResponse{Success: true, Logs: s.flags.GetLogs()})
}

func (h *HTTPService) Serve(ctx context.Context, flags FlagEvaluator) error {
	if h.HTTPServiceConfiguration == nil {
		return errors.New("http service configuration has not been initialised")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", h.HTTPServiceConfiguration.Port),
		Handler:           NewRouter(flags, h.HTTPServiceConfiguration, h.Registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("http service listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http service: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http service shutdown: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to write response JSON: %v", err)
	}
}
