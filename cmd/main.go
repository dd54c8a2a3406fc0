package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shenikar/public_alert_system/internal/broadcast"
	"github.com/shenikar/public_alert_system/internal/config"
	"github.com/shenikar/public_alert_system/internal/correlation"
	v1 "github.com/shenikar/public_alert_system/internal/handler/http/v1"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/shenikar/public_alert_system/internal/prediction"
	"github.com/shenikar/public_alert_system/internal/realtime"
	"github.com/shenikar/public_alert_system/internal/repository"
	"github.com/shenikar/public_alert_system/internal/service"
	"github.com/shenikar/public_alert_system/internal/sources"
	"github.com/shenikar/public_alert_system/internal/webhook"
	"github.com/shenikar/public_alert_system/pkg/logger"
	natsclient "github.com/shenikar/public_alert_system/pkg/nats"
	"github.com/shenikar/public_alert_system/pkg/postgres"
	redisclient "github.com/shenikar/public_alert_system/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/public_alert_system/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// incidentStore - хранилище, которым пользуются и движок корреляции, и сервисы
type incidentStore interface {
	correlation.IncidentStore
	service.IncidentRepository
}

// @title Public Alert System API
// @version 1.0
// @description Citizen and official incident reports correlated into live, confidence-scored incidents.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Хранилище инцидентов и отчетов
	var (
		incidents incidentStore
		reports   service.ReportRepository
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if err := runMigrations(cfg, log); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}

		dbpool, err := postgres.NewPostgresDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer dbpool.Close()
		log.Info("Successfully connected to PostgreSQL")

		incidents = repository.NewIncidentRepository(dbpool)
		reports = repository.NewReportRepository(dbpool)
	default:
		store := repository.NewMemoryStore()
		incidents = store
		reports = store
		log.Warn("Using in-memory store, data will not survive a restart")
	}

	// Рассылка обновлений
	hub := broadcast.NewHub(log, cfg.BroadcastBufferSize)
	relay := realtime.NewRelay(hub, log)

	// Redis: кэш инцидентов и очередь вебхуков
	var (
		cache       service.IncidentCache
		webhookDone <-chan struct{}
	)
	if cfg.RedisAddr != "" {
		redisClient, err := redisclient.NewRedisClient(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Info("Successfully connected to Redis")

		cache = repository.NewIncidentCache(redisClient, cfg.IncidentCacheTTL)

		if cfg.WebhookURL != "" {
			relay.AddSink("webhook", webhook.NewRedisWebhookPublisher(redisClient))

			// Инициализация и запуск воркера вебхуков
			webhookWorker := webhook.NewWebhookWorker(redisClient, log, cfg)
			webhookDone = webhookWorker.Start(ctx)
		}
	}

	// NATS: внешняя шина обновлений
	if cfg.NATSURL != "" {
		natsConn, err := natsclient.NewConnection(cfg.NATSURL, "public-alert-system", log)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsConn.Drain()
		log.WithField("subject", cfg.NATSSubject).Info("Successfully connected to NATS")

		relay.AddSink("nats", realtime.NewNATSSink(natsConn, cfg.NATSSubject))
	}

	relayDone := make(chan struct{})
	if relay.SinkCount() > 0 {
		go func() {
			defer close(relayDone)
			relay.Run(ctx)
		}()
	} else {
		close(relayDone)
	}

	// Движок корреляции
	engine := correlation.NewEngine(incidents, log, correlation.Options{
		Radius:        cfg.CorrelationRadius,
		RecencyWindow: cfg.CorrelationRecencyWindow,
		MaxAttempts:   cfg.CorrelationMaxAttempts,
	})

	// Сервис предсказаний
	var predictor service.Predictor
	if cfg.PredictionURL != "" {
		predictor = prediction.NewClient(cfg.PredictionURL, cfg.PredictionTimeout)
	} else {
		log.Warn("PREDICTION_URL is not set, default predictions will be used")
	}

	// Инициализация сервисов
	reportService := service.NewReportService(service.ReportServiceDeps{
		Reports:           reports,
		Correlator:        engine,
		Cache:             cache,
		Broadcaster:       hub,
		Predictor:         predictor,
		PredictionTimeout: cfg.PredictionTimeout,
	}, log)
	incidentService := service.NewIncidentService(incidents, cache, hub, log)
	alertService := service.NewAlertService(incidents, predictor, service.AlertOptions{
		MinConfidence:     models.ConfidenceLevel(cfg.AlertMinConfidence),
		Concurrency:       cfg.AlertConcurrency,
		PredictionTimeout: cfg.PredictionTimeout,
	}, log)

	// Имитация официального источника
	if cfg.SourcesEnabled {
		go sources.NewFeed(reportService, cfg.SourcesInterval, log).Run(ctx)
	}

	// Инициализация хэндлеров
	handler := v1.NewHandler(v1.Services{
		Reports:   reportService,
		Incidents: incidentService,
		Alerts:    alertService,
	}, hub, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Метрики Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	// Закрытие Hub завершает открытые SSE-потоки, иначе Shutdown ждал бы их до таймаута
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// Остановка фоновых задач
	cancel()
	<-relayDone
	if webhookDone != nil {
		<-webhookDone
	}

	log.Info("Server gracefully stopped")
}
