package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ambiyansyah-risyal/antrian"
	"github.com/ambiyansyah-risyal/antrian/internal/config"
)

// runtime bundles what a command needs to issue calls.
type runtime struct {
	file     *config.File
	logger   *zap.Logger
	orch     *antrian.Orchestrator
	outcomes *antrian.MemoryOutcomeRecorder
	registry *prometheus.Registry

	rdb     *redis.Client
	metrics *metricsServer
}

func loadFile() (*config.File, error) {
	file, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if metricsAddr != "" {
		file.Metrics.Addr = metricsAddr
	}
	if redisAddr != "" {
		file.Redis.Addr = redisAddr
	}
	return file, nil
}

// setup loads the configuration and builds the orchestrator with its
// logging, metrics and outcome recording.
func setup(cmd *cobra.Command, extra ...antrian.Option) (*runtime, error) {
	file, err := loadFile()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(file.Logging, verbose)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		file:     file,
		logger:   logger,
		outcomes: antrian.NewMemoryOutcomeRecorder(),
		registry: prometheus.NewRegistry(),
	}
	rt.registry.MustRegister(collectors.NewGoCollector())

	recorders := antrian.MultiOutcomeRecorder{rt.outcomes}
	if file.Redis.Addr != "" {
		rt.rdb = redis.NewClient(&redis.Options{
			Addr:     file.Redis.Addr,
			Password: file.Redis.Password,
			DB:       file.Redis.DB,
		})
		recorders = append(recorders, antrian.NewRedisOutcomeRecorder(rt.rdb,
			antrian.WithOutcomePrefix(file.Redis.Prefix),
			antrian.WithOutcomeTTL(file.Redis.TTL),
		))
		logger.Debug("Recording outcomes in Redis", zap.String("addr", file.Redis.Addr))
	}

	libLogger := antrian.NewZapLogger(logger.Named("antrian"))
	opts := file.Options()
	opts = append(opts,
		antrian.WithHTTPClient(&http.Client{Timeout: file.Timeout}),
		antrian.WithLogger(libLogger),
		antrian.WithNotifier(antrian.LogNotifier{Logger: libLogger}),
		antrian.WithMetricsCollector(antrian.NewMetricsCollectorWithRegistry(rt.registry)),
		antrian.WithOutcomeRecorder(recorders),
	)
	opts = append(opts, extra...)

	rt.orch = antrian.New(opts...)
	if !rt.orch.IsValid() {
		rt.close(cmd.Context())
		return nil, rt.orch.ValidationError()
	}

	if file.Metrics.Addr != "" {
		rt.metrics, err = startMetricsServer(file.Metrics.Addr, file.Metrics.Path, rt.registry, logger)
		if err != nil {
			rt.close(cmd.Context())
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}
	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := rt.metrics.shutdown(ctx); err != nil {
		rt.logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}
	if rt.rdb != nil {
		if err := rt.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			rt.logger.Warn("Redis close failed", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}
