package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
	apikeyrepo "github.com/Ramsey-B/fern/internal/repositories/apikey"
	auditrepo "github.com/Ramsey-B/fern/internal/repositories/audit"
	apirepo "github.com/Ramsey-B/fern/internal/repositories/federatedapi"
	jobrepo "github.com/Ramsey-B/fern/internal/repositories/ingestionjob"
	integrationrepo "github.com/Ramsey-B/fern/internal/repositories/integration"
	membershiprepo "github.com/Ramsey-B/fern/internal/repositories/membership"
	metadatarepo "github.com/Ramsey-B/fern/internal/repositories/metadata"
	pagerepo "github.com/Ramsey-B/fern/internal/repositories/page"
	planrepo "github.com/Ramsey-B/fern/internal/repositories/plan"
	subscriptionrepo "github.com/Ramsey-B/fern/internal/repositories/subscription"
	"github.com/Ramsey-B/fern/pkg/agent"
	"github.com/Ramsey-B/fern/pkg/audit"
	"github.com/Ramsey-B/fern/pkg/clock"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/differ"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/federation"
	"github.com/Ramsey-B/fern/pkg/idgen"
	"github.com/Ramsey-B/fern/pkg/ingestion"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/license"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/retraction"
	federationroutes "github.com/Ramsey-B/fern/pkg/routes/federation"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/search"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logger := newLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("failed to set up tracing, continuing without it")
	} else {
		defer shutdownTracing(context.Background())
	}

	sqlxDB, err := connectDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer sqlxDB.Close()

	if err := runMigrations(cfg, sqlxDB, logger); err != nil {
		logger.WithError(err).Error("failed to run migrations")
		os.Exit(1)
	}

	db := database.NewDatabaseInstance(sqlxDB, logger)

	indexer, err := search.NewRedisIndexer(search.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Keyspace: cfg.RedisKeyspace,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect to redis")
		os.Exit(1)
	}
	defer indexer.Close()

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	defer producer.Close()

	notifier := events.NewEmitter(producer, logger)

	clk := clock.New()
	ids := idgen.New()

	apiRepo := apirepo.NewRepository(db, logger)
	planRepo := planrepo.NewRepository(db, logger)
	pageRepo := pagerepo.NewRepository(db, logger)
	subscriptionRepo := subscriptionrepo.NewRepository(db, logger)
	apiKeyRepo := apikeyrepo.NewRepository(db, logger)
	membershipRepo := membershiprepo.NewRepository(db, logger)
	metadataRepo := metadatarepo.NewRepository(db, logger)
	jobRepo := jobrepo.NewRepository(db, logger)
	integrationRepo := integrationrepo.NewRepository(db, logger)
	auditRepo := auditrepo.NewRepository(db, logger)

	auditor := audit.NewService(auditRepo, clk, ids, logger)

	pipeline := ingestion.NewPipeline(ingestion.PipelineParams{
		Apis:        apiRepo,
		Plans:       planRepo,
		Pages:       pageRepo,
		Memberships: membershipRepo,
		Audits:      auditor,
		Indexer:     indexer,
		Notifier:    notifier,
		Settings:    ingestion.StaticSettings{Mode: models.PrimaryOwnerMode(cfg.ApiPrimaryOwnerMode)},
		Clock:       clk,
		Ids:         ids,
		WorkerCount: cfg.IngestWorkerCount,
		Logger:      logger,
	})

	engine := retraction.NewEngine(retraction.EngineParams{
		Apis:          apiRepo,
		Plans:         planRepo,
		Pages:         pageRepo,
		Subscriptions: subscriptionRepo,
		ApiKeys:       apiKeyRepo,
		Metadata:      metadataRepo,
		Memberships:   membershipRepo,
		Audits:        auditor,
		Indexer:       indexer,
		Notifier:      notifier,
		Clock:         clk,
		Logger:        logger,
	})

	svc := federation.NewService(federation.ServiceParams{
		Integrations: integrationRepo,
		Jobs:         jobRepo,
		Apis:         apiRepo,
		Agent:        agent.Disconnected{},
		License:      license.NewStaticManager(cfg.LicensedOrganizations),
		Differ:       differ.New(apiRepo, logger),
		Pipeline:     pipeline,
		Retraction:   engine,
		Clock:        clk,
		Ids:          ids,
		Logger:       logger,
	})

	if cfg.KafkaInputTopic != "" {
		intake := federation.NewIntake(svc, logger)
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, intake.HandleMessage)
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("failed to start agent batch consumer")
			os.Exit(1)
		}
		defer consumer.Stop()
	}

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("failed to create DI container")
		os.Exit(1)
	}
	if err := registerDependencies(container, db, logger, svc); err != nil {
		logger.WithError(err).Error("failed to register dependencies")
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqCtx, _ := ectoinject.SetActiveContainer(c.Request().Context(), container.GetContainerID())
			c.SetRequest(c.Request().WithContext(reqCtx))
			return next(c)
		}
	})
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	federationroutes.Register(e.Group("/api/v1/integrations"))

	checker := health.NewChecker(sqlxDB, indexer, version)
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped unexpectedly")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	checker.SetReady(false)
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to shut down server cleanly")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func setupTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(otel.Tracer(cfg.AppName))

	return provider.Shutdown, nil
}

func connectDatabase(cfg config.Config, logger ectologger.Logger) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	var db *sqlx.DB
	var err error
	for attempt := 0; attempt <= cfg.DatabaseReconnectRetryCount; attempt++ {
		db, err = sqlx.Connect(cfg.DatabaseDriver, dsn)
		if err == nil {
			break
		}
		logger.WithError(err).Warnf("database connection attempt %d failed", attempt+1)
		time.Sleep(time.Duration(attempt+1) * time.Second)
	}
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	return db, nil
}

func runMigrations(cfg config.Config, db *sqlx.DB, logger ectologger.Logger) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})

	return ms.Migrate(cfg.DatabaseName, driver)
}

func registerDependencies(container ectocontainer.DIContainer, db database.DB, logger ectologger.Logger, svc *federation.Service) error {
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[database.DB](container, db); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*federation.Service](container, svc)
}
