package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/trainerhub/trainerhub/cmd/mainconfig"
	"github.com/trainerhub/trainerhub/internal/api/router"
	"github.com/trainerhub/trainerhub/internal/clients"
	appconfig "github.com/trainerhub/trainerhub/internal/config"
	"github.com/trainerhub/trainerhub/internal/contracts"
	"github.com/trainerhub/trainerhub/internal/gateway/evolution"
	"github.com/trainerhub/trainerhub/internal/http/handlers"
	"github.com/trainerhub/trainerhub/internal/notify"
	"github.com/trainerhub/trainerhub/internal/observability/metrics"
	"github.com/trainerhub/trainerhub/internal/providers"
	"github.com/trainerhub/trainerhub/internal/scheduling"
	"github.com/trainerhub/trainerhub/internal/trigger"
	"github.com/trainerhub/trainerhub/internal/webhook"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting trainerhub API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database not reachable", "error", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		logger.Warn("invalid DEFAULT_TIMEZONE, falling back to UTC", "timezone", cfg.DefaultTimezone, "error", err)
		loc = time.UTC
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOptions)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, provider settings fall back to defaults", "error", err)
	}

	// Metrics registry shared by the dispatcher, worker and webhook processor.
	registry := prometheus.NewRegistry()
	notifyMetrics := metrics.NewNotifyMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	// Stores.
	providerStore := providers.NewStore(pool)
	settingsStore := providers.NewSettingsStore(redisClient)
	clientStore := clients.NewStore(pool)
	contractStore := contracts.NewStore(pool)
	schedulingStore := scheduling.NewStore(pool)
	logStore := notify.NewLogStore(pool)
	processedStore := webhook.NewProcessedStore(pool)

	// WhatsApp gateway. Unconfigured is a supported mode: dispatch degrades
	// to logged no-ops so the scheduling API keeps working without it.
	var gatewayClient *evolution.Client
	if cfg.GatewayBaseURL != "" && cfg.GatewayAPIKey != "" && cfg.GatewayInstance != "" {
		gatewayClient, err = evolution.New(evolution.Config{
			BaseURL:  cfg.GatewayBaseURL,
			APIKey:   cfg.GatewayAPIKey,
			Instance: cfg.GatewayInstance,
			Logger:   logger.Logger,
		})
		if err != nil {
			logger.Error("failed to create gateway client", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("WhatsApp gateway not configured, outbound messages are dropped")
	}

	// Outbound notification queue.
	var queue notify.Queue
	if cfg.UseMemoryQueue {
		logger.Info("using in-memory notification queue")
		queue = notify.NewMemoryQueue(256)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		queue = notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)
	}

	// Messaging pipeline.
	var sender notify.TextSender
	if gatewayClient != nil {
		sender = notify.NewEvolutionSender(gatewayClient)
	}
	dispatcher := notify.NewDispatcher(sender, logStore, notifyMetrics, notify.DispatcherConfig{
		CountryPrefix: cfg.CountryPrefix,
		JitterMin:     cfg.DispatchJitterMin,
		JitterMax:     cfg.DispatchJitterMax,
		Location:      loc,
	}, logger)
	publisher := notify.NewPublisher(queue, clientStore, providerStore, loc, logger)

	// Domain services.
	scheduler := scheduling.NewScheduler(schedulingStore, contractStore, publisher, logger)
	contractService := contracts.NewService(contractStore, schedulingStore, logger)

	processor := webhook.NewProcessor(
		processedStore,
		providerStore,
		schedulingStore,
		contractStore,
		publisher,
		notifyMetrics,
		webhook.ProcessorConfig{
			DefaultLocation:  loc,
			DueLookaheadDays: cfg.ExpiryLookaheadDays,
		},
		logger,
	)

	runner := trigger.NewRunner(
		providerStore,
		settingsStore,
		schedulingStore,
		contractStore,
		logStore,
		processedStore,
		publisher,
		trigger.Config{
			Interval:            cfg.TriggerInterval,
			DefaultLocation:     loc,
			DailySummaryHour:    cfg.DailySummaryHour,
			MiddaySummaryHour:   cfg.MiddaySummaryHour,
			WeeklySummaryHour:   cfg.WeeklySummaryHour,
			ReminderLead:        cfg.ReminderLeadTime,
			ReminderWindow:      cfg.ReminderWindow,
			ExpiryLookaheadDays: cfg.ExpiryLookaheadDays,
			MaintenanceHour:     cfg.MaintenanceHour,
			RetentionDays:       cfg.AuditRetentionDays,
		},
		logger,
	)

	// Handlers.
	sessionsHandler := handlers.NewSessionsHandler(handlers.SessionsConfig{Scheduler: scheduler, Logger: logger})
	contractsHandler := handlers.NewContractsHandler(handlers.ContractsConfig{Service: contractService, Logger: logger})
	clientsHandler := handlers.NewClientsHandler(handlers.ClientsConfig{Store: clientStore, Logger: logger})
	notificationsHandler := handlers.NewNotificationsHandler(handlers.NotificationsConfig{
		Logs:      logStore,
		Publisher: publisher,
		Settings:  settingsStore,
		Providers: providerStore,
		Clients:   clientStore,
		Scheduler: scheduler,
		Location:  loc,
		Logger:    logger,
	})
	webhookHandler := handlers.NewWebhookHandler(handlers.WebhookConfig{Processor: processor, Logger: logger})
	systemHandler := handlers.NewSystemHandler(handlers.SystemConfig{Gateway: gatewayClient, Pinger: pool, Logger: logger})

	r := router.New(&router.Config{
		Logger:             logger,
		Sessions:           sessionsHandler,
		Contracts:          contractsHandler,
		Clients:            clientsHandler,
		Notifications:      notificationsHandler,
		Webhook:            webhookHandler,
		System:             systemHandler,
		MetricsHandler:     metricsHandler,
		AuthJWTSecret:      cfg.AuthJWTSecret,
		WebhookSecret:      cfg.WebhookSecret,
		CORSAllowedOrigins: cfg.CORSOrigins,
	})

	// Background loops: dispatch workers plus the trigger scans.
	for i := 0; i < cfg.WorkerCount; i++ {
		worker := notify.NewWorker(queue, dispatcher, notifyMetrics, logger.With("worker", i))
		go worker.Run(ctx)
	}
	go runner.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
