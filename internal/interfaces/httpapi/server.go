package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"walletops/internal/application"
	"walletops/internal/domain"
	"walletops/internal/normalize"
)

type HistoryReader interface {
	History(ctx context.Context, query application.HistoryQuery) (domain.HistoryPage, error)
	Ready(ctx context.Context) error
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type Server struct {
	history   HistoryReader
	aliases   normalize.AliasTable
	metrics   *Metrics
	logger    *slog.Logger
	buildInfo BuildInfo
}

func NewServer(history HistoryReader, aliases normalize.AliasTable, metrics *Metrics, logger *slog.Logger, buildInfo BuildInfo) (*Server, error) {
	if history == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if aliases == nil {
		aliases = normalize.DefaultAliases()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		history:   history,
		aliases:   aliases,
		metrics:   metrics,
		logger:    logger,
		buildInfo: buildInfo,
	}, nil
}

func (s *Server) MetricsObserver() *Metrics {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/version", s.handleVersion)
	mux.Handle("/metrics", s.metrics.Handler())
	return chain(mux, requestID, s.accessLog, s.recovery, cors)
}

// routeLabel bounds metric cardinality to the registered paths.
func routeLabel(path string) string {
	switch path {
	case "/history", "/healthz", "/readyz", "/version", "/metrics":
		return path
	default:
		return "unmatched"
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query()
	filter, err := application.ParseHistoryFilter(
		query.Get("type"),
		query.Get("token"),
		query.Get("from"),
		query.Get("to"),
		query.Get("pair"),
		s.aliases,
	)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.history.History(r.Context(), application.HistoryQuery{
		Address: query.Get("address"),
		Cursor:  query.Get("cursor"),
		Filter:  filter,
	})
	if err != nil {
		status, message := historyError(err)
		respondError(w, status, message)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// historyError maps a service error to the response status and the message
// shown to clients. Upstream details stay in the logs.
func historyError(err error) (int, string) {
	var upstream *application.UpstreamError
	switch {
	case errors.Is(err, application.ErrAddressRequired):
		return http.StatusBadRequest, "address is required"
	case errors.Is(err, application.ErrInvalidAddress):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, application.ErrProviderNotConfigured):
		return http.StatusInternalServerError, "MORALIS_API_KEY is not configured"
	case errors.As(err, &upstream) && upstream.StatusCode >= http.StatusBadRequest:
		return upstream.StatusCode, "Unable to fetch wallet history"
	default:
		return http.StatusInternalServerError, "Unable to fetch wallet history"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.history.Ready(ctx); err != nil {
		s.logger.Warn("readiness check failed", "err", err)
		respondError(w, http.StatusServiceUnavailable, "cache not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
