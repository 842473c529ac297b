package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/freightly/manifest/config"
	carrierrepo "github.com/freightly/manifest/internal/repositories/carrier"
	driverrepo "github.com/freightly/manifest/internal/repositories/driver"
	invoicerepo "github.com/freightly/manifest/internal/repositories/invoice"
	loadrepo "github.com/freightly/manifest/internal/repositories/load"
	"github.com/freightly/manifest/pkg/conflicts"
	"github.com/freightly/manifest/pkg/database"
	"github.com/freightly/manifest/pkg/events"
	"github.com/freightly/manifest/pkg/graph"
	"github.com/freightly/manifest/pkg/invoicing"
	"github.com/freightly/manifest/pkg/kafka"
	"github.com/freightly/manifest/pkg/loads"
	"github.com/freightly/manifest/pkg/logger"
	"github.com/freightly/manifest/pkg/middleware"
	"github.com/freightly/manifest/pkg/processor"
	carrierroutes "github.com/freightly/manifest/pkg/routes/carrier"
	driverroutes "github.com/freightly/manifest/pkg/routes/driver"
	"github.com/freightly/manifest/pkg/routes/health"
	invoiceroutes "github.com/freightly/manifest/pkg/routes/invoice"
	loadroutes "github.com/freightly/manifest/pkg/routes/load"
	networkroutes "github.com/freightly/manifest/pkg/routes/network"
	"github.com/freightly/manifest/pkg/startup"
	"github.com/freightly/manifest/pkg/tracing"
)

// app holds everything the startup dependencies construct and share.
type app struct {
	cfg    *config.Config
	logger ectologger.Logger

	db           *sqlx.DB
	graphClient  *graph.Client
	graphNetwork *graph.Network
	producer     *kafka.Producer
	consumer     *kafka.Consumer
	echo         *echo.Echo
	health       *health.Checker
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, flush := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})
	defer func() { _ = flush() }()

	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: cfg.AppName,
		Exporter:    cfg.TraceExporter,
		Endpoint:    cfg.TraceEndpoint,
		Insecure:    cfg.TraceInsecure,
		Timeout:     time.Duration(cfg.TraceTimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.WithError(err).Error("Failed to set up tracing")
		os.Exit(1)
	}

	a := &app{cfg: &cfg, logger: log}

	boot := startup.NewStartup(log, cfg.StartupMaxAttempts)
	boot.AddDependency(&postgresDependency{app: a})
	if cfg.GraphDBEnabled {
		boot.AddDependency(&graphDependency{app: a})
	}
	boot.AddDependency(&kafkaProducerDependency{app: a})
	boot.AddDependency(&wiringDependency{app: a})
	if cfg.KafkaConsumerEnabled {
		boot.AddDependency(&kafkaConsumerDependency{app: a})
	}
	boot.AddDependency(&httpDependency{app: a})

	if err := boot.Start(ctx); err != nil {
		log.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	a.health.SetReady(true)
	log.WithField("port", cfg.Port).Infof("%s is ready", cfg.AppName)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	a.health.SetReady(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := boot.Stop(stopCtx); err != nil {
		log.WithError(err).Error("Shutdown did not complete cleanly")
	}
	if err := shutdownTracing(stopCtx); err != nil {
		log.WithError(err).Error("Failed to flush traces")
	}
}

type postgresDependency struct {
	app *app
}

func (d *postgresDependency) GetName() string { return "postgres" }
func (d *postgresDependency) DependsOn() []string { return nil }

func (d *postgresDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	db, err := sqlx.Open(cfg.DatabaseDriver, dsn)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return err
	}

	migrations := database.NewMigrationService(d.app.logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		_ = db.Close()
		return err
	}

	d.app.db = db
	return nil
}

func (d *postgresDependency) Stop(ctx context.Context) error {
	if d.app.db == nil {
		return nil
	}
	return d.app.db.Close()
}

type graphDependency struct {
	app *app
}

func (d *graphDependency) GetName() string { return "graph" }
func (d *graphDependency) DependsOn() []string { return nil }

func (d *graphDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg

	client, err := graph.NewClient(graph.Config{
		Host:     cfg.GraphDBHost,
		Port:     cfg.GraphDBPort,
		Username: cfg.GraphDBUser,
		Password: cfg.GraphDBPassword,
	}, d.app.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return err
	}

	d.app.graphClient = client
	d.app.graphNetwork = graph.NewNetwork(client, d.app.logger)
	return nil
}

func (d *graphDependency) Stop(ctx context.Context) error {
	if d.app.graphClient == nil {
		return nil
	}
	return d.app.graphClient.Close(ctx)
}

type kafkaProducerDependency struct {
	app *app
}

func (d *kafkaProducerDependency) GetName() string { return "kafka-producer" }
func (d *kafkaProducerDependency) DependsOn() []string { return nil }

func (d *kafkaProducerDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	d.app.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, d.app.logger)
	return nil
}

func (d *kafkaProducerDependency) Stop(ctx context.Context) error {
	if d.app.producer == nil {
		return nil
	}
	return d.app.producer.Close()
}

// wiringDependency builds repositories and services and registers them in
// the DI container the route handlers resolve from.
type wiringDependency struct {
	app *app
}

func (d *wiringDependency) GetName() string { return "wiring" }

func (d *wiringDependency) DependsOn() []string {
	deps := []string{"postgres", "kafka-producer"}
	if d.app.cfg.GraphDBEnabled {
		deps = append(deps, "graph")
	}
	return deps
}

func (d *wiringDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	log := d.app.logger

	db := database.NewDatabaseInstance(d.app.db, log)

	loadRepo := loadrepo.NewRepository(db, log)
	carrierRepo := carrierrepo.NewRepository(db, log)
	driverRepo := driverrepo.NewRepository(db, log)
	invoiceRepo := invoicerepo.NewRepository(db, log)

	driverEngine := conflicts.NewDriverEngine(loadRepo, log, cfg.FlagWriteConcurrency)
	duplicateEngine := conflicts.NewDuplicateEngine(loadRepo, log, cfg.FlagWriteConcurrency)
	dateEngine := conflicts.NewDateConflictEngine(loadRepo, log, cfg.FlagWriteConcurrency)
	conflictService := conflicts.NewService(driverEngine, duplicateEngine, dateEngine, log)
	refresher := conflicts.NewRefresher(driverEngine, duplicateEngine, log, cfg.RefreshConcurrency)

	emitter := events.NewEmitter(d.app.producer, log)

	var projector loads.GraphProjector
	if d.app.graphNetwork != nil {
		projector = d.app.graphNetwork
	}
	loadService := loads.NewService(loadRepo, conflictService, refresher, emitter, projector, log)

	generator := invoicing.NewGenerator(loadRepo, invoiceRepo, log, invoicing.GeneratorConfig{
		DueDays:              cfg.InvoiceDueDays,
		ExcludeDateConflicts: cfg.InvoiceExcludeDateConflicts,
	})
	importer := invoicing.NewImporter(loadRepo, carrierRepo, driverRepo, invoiceRepo, conflictService, log)
	backfiller := invoicing.NewBackfiller(loadRepo, log)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*loadrepo.Repository](container, loadRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*carrierrepo.Repository](container, carrierRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*driverrepo.Repository](container, driverRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*invoicerepo.Repository](container, invoiceRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*conflicts.Service](container, conflictService); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*conflicts.Refresher](container, refresher); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*loads.Service](container, loadService); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*invoicing.Generator](container, generator); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*invoicing.Importer](container, importer); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*invoicing.Backfiller](container, backfiller); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*events.Emitter](container, emitter); err != nil {
		return err
	}
	if d.app.graphNetwork != nil {
		if err := ectoinject.RegisterInstance[*graph.Network](container, d.app.graphNetwork); err != nil {
			return err
		}
	}

	return nil
}

func (d *wiringDependency) Stop(ctx context.Context) error { return nil }

type kafkaConsumerDependency struct {
	app *app
}

func (d *kafkaConsumerDependency) GetName() string { return "kafka-consumer" }
func (d *kafkaConsumerDependency) DependsOn() []string { return []string{"wiring"} }

func (d *kafkaConsumerDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	log := d.app.logger

	ctx, loadService, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return err
	}
	ctx, carrierRepo, err := ectoinject.GetContext[*carrierrepo.Repository](ctx)
	if err != nil {
		return err
	}
	_, driverRepo, err := ectoinject.GetContext[*driverrepo.Repository](ctx)
	if err != nil {
		return err
	}

	proc := processor.NewProcessor(loadService, carrierRepo, driverRepo, log)

	d.app.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       cfg.KafkaBrokers,
		Topic:         cfg.KafkaInputTopic,
		ConsumerGroup: cfg.KafkaConsumerGroup,
	}, log, proc.HandleMessage)

	return d.app.consumer.Start(context.Background())
}

func (d *kafkaConsumerDependency) Stop(ctx context.Context) error {
	if d.app.consumer == nil {
		return nil
	}
	return d.app.consumer.Stop()
}

type httpDependency struct {
	app *app
}

func (d *httpDependency) GetName() string { return "http" }
func (d *httpDependency) DependsOn() []string { return []string{"wiring"} }

func (d *httpDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	log := d.app.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(echomiddleware.Recover())
	e.HTTPErrorHandler = middleware.Error(log)

	var pinger health.GraphPinger
	if d.app.graphClient != nil {
		pinger = d.app.graphClient
	}
	d.app.health = health.NewChecker(d.app.db, pinger, cfg.Version)
	d.app.health.RegisterRoutes(e)

	api := e.Group("/api/v1")
	loadroutes.Register(api.Group("/loads"))
	carrierroutes.Register(api.Group("/carriers"))
	driverroutes.Register(api.Group("/drivers"))
	invoiceroutes.Register(api.Group("/invoices"))
	networkroutes.Register(api.Group("/network"))

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:    time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:    time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	d.app.echo = e

	go func() {
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()

	return nil
}

func (d *httpDependency) Stop(ctx context.Context) error {
	if d.app.echo == nil {
		return nil
	}
	return d.app.echo.Shutdown(ctx)
}
