package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	leadapp "github.com/leadcrm/backend/internal/application/lead"
	"github.com/leadcrm/backend/internal/infrastructure/config"
	"github.com/leadcrm/backend/internal/infrastructure/crm"
	"github.com/leadcrm/backend/internal/infrastructure/logger"
	"github.com/leadcrm/backend/internal/infrastructure/notification"
	"github.com/leadcrm/backend/internal/infrastructure/telemetry"
	"github.com/leadcrm/backend/internal/interfaces/http/handler"
	"github.com/leadcrm/backend/internal/interfaces/http/middleware"
	"github.com/leadcrm/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// observability bundles the OpenTelemetry providers so they can be flushed together
type observability struct {
	tracer *telemetry.TracerProvider
	meter  *telemetry.MeterProvider
	logs   *telemetry.LoggerProvider
}

func (o *observability) shutdown(ctx context.Context) {
	// Logs last so shutdown errors of the other providers are still exported
	_ = o.tracer.Shutdown(ctx)
	_ = o.meter.Shutdown(ctx)
	_ = o.logs.Shutdown(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	obs, err := setupTelemetry(ctx, cfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log, err := logger.New(logCfg, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: obs.logs,
		Level:          logger.ParseLevel(cfg.Log.Level),
	}))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting LeadCRM backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("keycrm_base_url", cfg.KeyCRM.BaseURL),
	)

	leadMetrics, err := telemetry.NewLeadMetrics(obs.meter.Meter("leadcrm.lead"))
	if err != nil {
		log.Fatal("Failed to create lead metrics", zap.Error(err))
	}

	gateway, err := newCRMGateway(cfg, log)
	if err != nil {
		log.Fatal("Failed to create KeyCRM client", zap.Error(err))
	}

	notifier, err := newFailureNotifier(cfg, leadMetrics, log)
	if err != nil {
		log.Fatal("Failed to create failure notifier", zap.Error(err))
	}

	leadService := leadapp.NewService(gateway, notifier, leadMetrics, log)

	rootCtx, stop := context.WithCancel(ctx)
	defer stop()

	engine := newEngine(rootCtx, cfg, obs, leadService, log)

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
	stop()

	// In-flight submissions may still be waiting on the CRM
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.KeyCRM.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	obs.shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*observability, error) {
	tc := cfg.Telemetry

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}

	meter, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsExportInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		_ = meter.Shutdown(ctx)
		return nil, err
	}

	return &observability{tracer: tracer, meter: meter, logs: logs}, nil
}

func newCRMGateway(cfg *config.Config, log *zap.Logger) (*crm.KeyCRMAdapter, error) {
	crmConfig := crm.NewKeyCRMConfig()
	crmConfig.APIBaseURL = cfg.KeyCRM.BaseURL
	crmConfig.Timeout = cfg.KeyCRM.Timeout

	client, err := crm.NewKeyCRMClient(crmConfig, nil, log)
	if err != nil {
		return nil, err
	}
	return crm.NewKeyCRMAdapter(client, log), nil
}

func newFailureNotifier(cfg *config.Config, metrics *telemetry.LeadMetrics, log *zap.Logger) (*notification.FailureNotifier, error) {
	nc := cfg.Notification
	if nc.AdminEmail == "" {
		log.Warn("notification.admin_email not set, CRM failures will only be logged")
		return notification.NewFailureNotifier("", nil, metrics, log), nil
	}

	sender, err := notification.NewSMTPSender(notification.SMTPConfig{
		Host:     nc.SMTPHost,
		Port:     nc.SMTPPort,
		Username: nc.SMTPUsername,
		Password: nc.SMTPPassword,
		From:     nc.From,
	})
	if err != nil {
		return nil, err
	}
	return notification.NewFailureNotifier(nc.AdminEmail, sender, metrics, log), nil
}

func newEngine(ctx context.Context, cfg *config.Config, obs *observability, leadService *leadapp.Service, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request ID feeds logging and tracing, tracing wraps
	// everything that may fail the request.
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   []string{"/api/v1/system/ping"},
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: obs.meter,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	secure := middleware.DefaultSecurityConfig()
	secure.HSTSEnabled = cfg.IsProduction()
	engine.Use(middleware.SecureWithConfig(secure))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(cors))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	systemHandler := handler.NewSystemHandler(cfg.App.Name)
	leadHandler := handler.NewLeadHandler(leadService, cfg.KeyCRM.Settings())

	leadRoutes := router.NewDomainGroup("leads", "/leads")
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		go limiter.Run(ctx, time.Minute)
		leadRoutes.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}
	leadRoutes.POST("", leadHandler.Submit)

	systemRoutes := router.NewDomainGroup("system", "/system").
		GET("/ping", systemHandler.Ping).
		GET("/info", systemHandler.GetSystemInfo)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(systemRoutes).
		Register(leadRoutes).
		Setup()

	return engine
}
