package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-report-service/internal/api/http"
	"github.com/spec-kit/incident-report-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-report-service/internal/auth"
	"github.com/spec-kit/incident-report-service/internal/config"
	"github.com/spec-kit/incident-report-service/internal/events"
	"github.com/spec-kit/incident-report-service/internal/observability"
	"github.com/spec-kit/incident-report-service/internal/persistence"
	"github.com/spec-kit/incident-report-service/internal/ratelimit"
	"github.com/spec-kit/incident-report-service/internal/renderer"
	"github.com/spec-kit/incident-report-service/internal/report"
	"github.com/spec-kit/incident-report-service/internal/repository"
	"github.com/spec-kit/incident-report-service/internal/service"
	"github.com/spec-kit/incident-report-service/internal/storage"
	"github.com/spec-kit/incident-report-service/internal/summarizer"
	"github.com/spec-kit/incident-report-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store, err := storage.NewArtifactStore(cfg.Storage.ReportsDir, logger)
	if err != nil {
		logger.Fatal("failed to init artifact store", zap.Error(err))
	}

	var artifacts repository.ReportArtifactRepository
	if pool := pg.PoolHandle(); pool != nil {
		artifacts = repository.NewReportArtifactRepository(pool)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, logger)

	template, err := loadTemplate(cfg.Report.TemplatePath)
	if err != nil {
		logger.Fatal("failed to load report template", zap.Error(err))
	}

	narrative := report.NewNarrativeBuilder(summarizer.NewClient(cfg.Summarizer), cfg.Summarizer.Timeout(), logger)

	reportService := service.NewReportService(service.Dependencies{
		SLA:           report.NewSLAThresholds(cfg.SLA),
		Narrative:     narrative,
		Renderer:      renderer.NewWkhtmltopdf(cfg.Renderer, logger),
		Store:         store,
		Artifacts:     artifacts,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		Template:      template,
		DefaultLocale: cfg.Report.DefaultLocale,
	})

	keyChecker := auth.NewKeyChecker(cfg.Auth)
	tokens := auth.NewDownloadTokenManager(cfg.Auth.DownloadTokenSecret, cfg.Auth.DownloadTokenTTLMinutes)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(redis.Client, cfg.RateLimit.RequestsPerMinute, logger)
	}

	app := fiber.New(fiber.Config{BodyLimit: 32 * 1024 * 1024})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Reports:    handlers.NewReportsHandler(reportService, keyChecker, tokens, cfg.Report.SampleDataLoc),
		KeyChecker: keyChecker,
		Limiter:    limiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func loadTemplate(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
