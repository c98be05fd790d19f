package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/agentmarket/agent/discovery"
	"github.com/BaSui01/agentmarket/api/handlers"
	"github.com/BaSui01/agentmarket/config"
	"github.com/BaSui01/agentmarket/internal/metrics"
	"github.com/BaSui01/agentmarket/internal/server"
	"github.com/BaSui01/agentmarket/internal/telemetry"
)

// poolStatsInterval is how often connection pool gauges are refreshed.
const poolStatsInterval = 15 * time.Second

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 AgentMarket 的主服务器
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	level      zap.AtomicLevel

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	store     *storeBundle
	telemetry *telemetry.Providers
	collector *metrics.Collector
	watcher   *config.Watcher

	// 后台 goroutine（限流清理、连接池指标）的生命周期
	bgCtx    context.Context
	bgCancel context.CancelFunc

	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewServer opens the record store and builds the HTTP stack. Nothing listens
// until Start.
func NewServer(ctx context.Context, cfg *config.Config, configPath string, logger *zap.Logger, level zap.AtomicLevel) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		level:      level,
		collector:  metrics.NewCollector("agentmarket", logger),
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())

	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		providers = &telemetry.Providers{}
	}
	s.telemetry = providers

	store, err := openStore(ctx, cfg, s.collector, logger)
	if err != nil {
		s.bgCancel()
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	s.store = store

	if cfg.Store.SeedSamples {
		n, err := seedIfEmpty(ctx, store, cfg.Store.SeedValue, logger)
		if err != nil {
			logger.Warn("sample seed failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("sample catalog loaded", zap.Int("records", n))
		}
	}

	s.httpManager = server.NewManager("api", s.buildHandler(), server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		TLSCertFile:     cfg.Server.TLSCertFile,
		TLSKeyFile:      cfg.Server.TLSKeyFile,
	}, logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	s.metricsManager = server.NewManager("metrics", metricsMux, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	return s, nil
}

// buildHandler mounts the API routes behind the middleware chain.
func (s *Server) buildHandler() http.Handler {
	search := discovery.NewSearchService(s.store.store, &s.cfg.Search, s.logger,
		discovery.WithObserver(s.collector),
		discovery.WithTracer(s.telemetry.Tracer(telemetry.DiscoveryTracerName)),
	)

	health := handlers.NewHealthHandler(s.logger)
	for _, check := range s.store.checks {
		health.RegisterCheck(check)
	}
	agents := handlers.NewAgentHandler(search, s.logger)

	mux := http.NewServeMux()
	health.RegisterRoutes(mux, Version, BuildTime, GitCommit)
	agents.RegisterRoutes(mux)

	srv := s.cfg.Server
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/version", "/metrics"}
	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		CORS(srv.CORSAllowedOrigins),
		RateLimiter(s.bgCtx, srv.RateLimitRPS, srv.RateLimitBurst, s.logger),
		JWTAuth(srv.JWTSecret, srv.JWTIssuer, skipAuthPaths, len(srv.APIKeys) > 0, s.logger),
		APIKeyAuth(srv.APIKeys, skipAuthPaths, s.logger),
	)
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动 API 与 Metrics 服务器以及配置监听
func (s *Server) Start() error {
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.metricsManager.Start(); err != nil {
		_ = s.httpManager.Shutdown(context.Background())
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	if s.configPath != "" {
		if err := s.startWatcher(); err != nil {
			s.logger.Warn("config watcher disabled", zap.Error(err))
		}
	}

	if s.store.reportStats != nil {
		s.wg.Add(1)
		go s.poolStatsLoop()
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.httpManager.ListenAddr()),
		zap.String("metrics_addr", s.metricsManager.ListenAddr()),
		zap.Bool("tls", s.cfg.Server.TLSCertFile != "" && s.cfg.Server.TLSKeyFile != ""),
		zap.Bool("config_watch", s.watcher != nil),
	)
	return nil
}

// startWatcher follows the config file. Only the log level is applied live;
// other changes need a restart.
func (s *Server) startWatcher() error {
	w, err := config.NewWatcher(s.configPath, config.NewLoader(), s.cfg,
		config.WithWatcherLogger(s.logger))
	if err != nil {
		return err
	}
	w.OnReload(func(old, updated *config.Config) {
		if old.Log.Level != updated.Log.Level {
			s.level.SetLevel(parseLevel(updated.Log.Level))
			s.logger.Info("log level changed",
				zap.String("from", old.Log.Level),
				zap.String("to", updated.Log.Level))
		}
		if !reflect.DeepEqual(old.Server, updated.Server) || !reflect.DeepEqual(old.Store, updated.Store) {
			s.logger.Warn("server or store settings changed, restart to apply")
		}
	})
	if err := w.Start(s.bgCtx); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

func (s *Server) poolStatsLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.bgCtx.Done():
			return
		case <-ticker.C:
			s.store.reportStats()
		}
	}
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown blocks until SIGINT/SIGTERM or a server failure, then shuts
// everything down.
func (s *Server) WaitForShutdown() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case serveErr = <-s.httpManager.Errors():
		s.logger.Error("HTTP server failed", zap.Error(serveErr))
	case serveErr = <-s.metricsManager.Errors():
		s.logger.Error("metrics server failed", zap.Error(serveErr))
	}

	return errors.Join(serveErr, s.Shutdown())
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info("Starting graceful shutdown...")

		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		if s.httpManager != nil {
			errs = append(errs, s.httpManager.Shutdown(ctx))
		}
		if s.metricsManager != nil {
			errs = append(errs, s.metricsManager.Shutdown(ctx))
		}

		if s.watcher != nil {
			s.watcher.Stop()
		}
		s.bgCancel()
		s.wg.Wait()

		if s.store != nil {
			errs = append(errs, s.store.Close(ctx))
		}
		if s.telemetry != nil {
			errs = append(errs, s.telemetry.Shutdown(ctx))
		}

		err = errors.Join(errs...)
		if err != nil {
			s.logger.Error("shutdown finished with errors", zap.Error(err))
		} else {
			s.logger.Info("Graceful shutdown completed")
		}
	})
	return err
}
