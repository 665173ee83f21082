package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hospital/hospital/internal/config"
	"github.com/hospital/hospital/internal/domain/hospital"
	"github.com/hospital/hospital/internal/platform/db"
	"github.com/hospital/hospital/internal/platform/middleware"
	"github.com/hospital/hospital/internal/platform/rpc"
)

// store is the persistence backend chosen by STORE_DRIVER.
type store struct {
	tx            hospital.Transactor
	hospitals     hospital.HospitalRepository
	patients      hospital.PatientRepository
	registrations hospital.RegistrationRepository
	pinger        db.Pinger
	stats         func() *db.PoolStats
	close         func()
}

func memoryStore() *store {
	m := hospital.NewMemoryStore()
	return &store{
		tx:            m,
		hospitals:     m.Hospitals(),
		patients:      m.Patients(),
		registrations: m.Registrations(),
		pinger:        m,
		close:         func() {},
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry) (*store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return memoryStore(), nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBSchema)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	if cfg.AutoMigrate {
		n, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx, cfg.DBSchema)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		logger.Info().Int("applied", n).Msg("migrations applied")
	}

	if reg != nil {
		if err := db.RegisterPoolMetrics(reg, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}

	return &store{
		tx:            db.NewTransactor(pool),
		hospitals:     hospital.NewHospitalRepo(pool),
		patients:      hospital.NewPatientRepo(pool),
		registrations: hospital.NewRegistrationRepo(pool),
		pinger:        pool,
		stats:         func() *db.PoolStats { return db.GetPoolStats(pool) },
		close:         pool.Close,
	}, nil
}

// newServer assembles the echo instance. reg may be nil when metrics are
// disabled.
func newServer(cfg *config.Config, logger zerolog.Logger, st *store, reg *prometheus.Registry) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = rpc.ErrorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if reg != nil {
		m, err := middleware.NewRPCMetrics(reg)
		if err != nil {
			return nil, err
		}
		e.Use(m.Middleware())
	}
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	api := e.Group(rpc.PathPrefix, middleware.BodyLimit(cfg.BodyLimit), middleware.RateLimit(rateLimitCfg))

	svc := hospital.NewService(st.tx, st.hospitals, st.patients, st.registrations, logger)
	hospital.NewHandler(svc).RegisterRoutes(api)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(st.pinger, st.stats))
	if reg != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	return e, nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(os.Stdout, cfg.Env)

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = newRegistry()
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger, reg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open store")
		return err
	}
	defer st.close()

	e, err := newServer(cfg, logger, st, reg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
