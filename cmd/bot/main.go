package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hackclub/stonepheus/internal/ai"
	httptransport "github.com/hackclub/stonepheus/internal/api/http"
	"github.com/hackclub/stonepheus/internal/api/http/handlers"
	"github.com/hackclub/stonepheus/internal/canvas"
	"github.com/hackclub/stonepheus/internal/config"
	"github.com/hackclub/stonepheus/internal/events"
	"github.com/hackclub/stonepheus/internal/observability"
	"github.com/hackclub/stonepheus/internal/persistence"
	"github.com/hackclub/stonepheus/internal/relay"
	"github.com/hackclub/stonepheus/internal/repository"
	"github.com/hackclub/stonepheus/internal/scrape"
	"github.com/hackclub/stonepheus/internal/slackapi"
	"github.com/hackclub/stonepheus/internal/worker"
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
		if err := persistence.RunMigrations(ctx, cfg.Postgres, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	metrics := observability.NewMetrics()
	slackClient := slackapi.NewClient(cfg.Slack.OAuthToken, logger)

	var assistant relay.Assistant
	if cfg.AI.Enabled {
		var store canvas.Store
		if redis.Client != nil {
			store = canvas.NewRedisStore(redis.Client)
		} else {
			store = canvas.NewMemoryStore(time.Now)
		}
		docs := canvas.NewService(slackClient, store,
			cfg.Canvas.FAQFileID, cfg.Canvas.ThemeFileID, cfg.Canvas.TTL)
		assistant = ai.NewClient(nil, cfg.AI.BaseURL, cfg.AI.Model, docs)
	}

	projects := scrape.NewService(nil, cfg.Showcase.BaseURL, cfg.Showcase.Session, logger)

	dispatcher := events.NewInMemoryDispatcher(func(event events.Event, err error) {
		metrics.RecordError(string(event.Type))
		logger.Error("event handler failed",
			zap.String("type", string(event.Type)),
			zap.String("id", event.ID),
			zap.Error(err))
	})

	engine := relay.NewEngine(relay.EngineConfig{
		Channels:     cfg.Slack.Channels,
		WorkspaceURL: cfg.Slack.WorkspaceURL,
		TeamID:       cfg.Slack.TeamID,
		FAQFileID:    cfg.Canvas.FAQFileID,
	}, slackClient, ticketRepo, userRepo, projects, assistant, dispatcher, logger)
	engine.Register()

	notifier := relay.NewNotifier(slackClient, cfg.Slack.WorkspaceURL, metrics, logger)
	notifier.Register(dispatcher)

	workerPool := worker.NewPool(cfg.Worker.Count, cfg.Worker.QueueSize, logger)
	defer workerPool.Close()

	normalizer := relay.NewNormalizer(cfg.Slack.Channels, cfg.Slack.AppID)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, 0)

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	metricsHandler := handlers.NewMetricsHandler(metrics)
	slackHandler := handlers.NewSlackHandler(cfg.Slack.SigningSecret,
		normalizer, dispatcher, workerPool, metrics, logger)
	projectsHandler := handlers.NewProjectsHandler(projects)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   healthHandler,
		Metrics:  metricsHandler,
		Slack:    slackHandler,
		Projects: projectsHandler,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
