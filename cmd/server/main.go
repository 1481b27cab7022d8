package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	taxapp "github.com/erp/gst/internal/application/tax"
	"github.com/erp/gst/internal/infrastructure/config"
	"github.com/erp/gst/internal/infrastructure/logger"
	"github.com/erp/gst/internal/infrastructure/registry"
	"github.com/erp/gst/internal/infrastructure/telemetry"
	"github.com/erp/gst/internal/interfaces/http/handler"
	"github.com/erp/gst/internal/interfaces/http/middleware"
	"github.com/erp/gst/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/erp/gst"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		TimeFormat:  "2006-01-02T15:04:05.000Z07:00",
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting GST service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("invoice_registry", cfg.Invoice.Registry),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := mp.Meter(instrumentationName)

	taxMetrics, err := telemetry.NewTaxMetrics(telemetry.TaxMetricsConfig{Meter: meter, Logger: log})
	if err != nil {
		log.Fatal("Failed to register tax metrics", zap.Error(err))
	}

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)

	invoiceRegistry, err := registry.New(cfg,
		registry.WithLogger(log),
		registry.WithInMemoryFallback(!cfg.IsProduction()),
		registry.WithDatabasePlugins(dbTracing),
	)
	if err != nil {
		log.Fatal("Failed to create invoice number registry", zap.Error(err))
	}
	defer func() {
		if err := invoiceRegistry.Close(); err != nil {
			log.Error("Error closing invoice number registry", zap.Error(err))
		}
	}()

	taxService := taxapp.NewTaxService(invoiceRegistry,
		taxapp.WithLogger(log),
		taxapp.WithMetrics(taxMetrics),
		taxapp.WithMaxAttempts(cfg.Invoice.MaxAttempts),
		taxapp.WithRegistryName(cfg.Invoice.Registry),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version)
	if pinger, ok := invoiceRegistry.(interface{ Ping(context.Context) error }); ok {
		systemHandler.AddCheck("invoice_registry", pinger.Ping)
	}

	engine, limiter, err := newEngine(cfg, log, meter)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	if limiter != nil {
		defer limiter.Close()
	}

	router.Setup(engine, handler.NewTaxHandler(taxService), systemHandler)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTelemetry(shutdownCtx, log, tp, mp); err != nil {
		log.Error("Telemetry shutdown incomplete", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// shutdownTelemetry exports spans still buffered from in-flight requests, then
// stops the meter and tracer providers.
func shutdownTelemetry(ctx context.Context, log *zap.Logger, tp *telemetry.TracerProvider, mp *telemetry.MeterProvider) error {
	var errs []error
	if err := tp.ForceFlush(ctx); err != nil {
		log.Warn("Failed to flush pending spans", zap.Error(err))
		errs = append(errs, err)
	}
	if err := mp.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// newEngine builds the gin engine with the service middleware stack. The
// returned limiter is nil when rate limiting is off.
func newEngine(cfg *config.Config, log *zap.Logger, meter metric.Meter) (*gin.Engine, *middleware.RateLimiter, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, nil, err
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		return nil, nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   []string{"/health"},
		}),
		middleware.SpanEnricher(),
		httpMetrics,
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
		engine.Use(middleware.RateLimit(limiter))
	}

	return engine, limiter, nil
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}
