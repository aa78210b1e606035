package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type metricsServer struct {
	server *http.Server
	addr   string
	logger *zap.Logger
}

func newMetricsRouter(gatherer prometheus.Gatherer, path string) chi.Router {
	if path == "" {
		path = "/metrics"
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// startMetricsServer listens on addr and serves the registry in the
// background until shutdown is called.
func startMetricsServer(addr, path string, gatherer prometheus.Gatherer, logger *zap.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &metricsServer{
		server: &http.Server{
			Handler:           newMetricsRouter(gatherer, path),
			ReadHeaderTimeout: 10 * time.Second,
		},
		addr:   ln.Addr().String(),
		logger: logger,
	}
	logger.Info("Starting metrics server", zap.String("addr", s.addr), zap.String("path", path))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	return s, nil
}

func (s *metricsServer) shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.logger.Info("Shutting down metrics server")
	return s.server.Shutdown(ctx)
}
