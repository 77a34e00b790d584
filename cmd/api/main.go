package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldserve/ticket-tracker/internal/api/http"
	"github.com/fieldserve/ticket-tracker/internal/api/http/handlers"
	"github.com/fieldserve/ticket-tracker/internal/auth"
	"github.com/fieldserve/ticket-tracker/internal/clock"
	"github.com/fieldserve/ticket-tracker/internal/config"
	"github.com/fieldserve/ticket-tracker/internal/domain"
	"github.com/fieldserve/ticket-tracker/internal/events"
	"github.com/fieldserve/ticket-tracker/internal/geocode"
	"github.com/fieldserve/ticket-tracker/internal/mail"
	"github.com/fieldserve/ticket-tracker/internal/observability"
	"github.com/fieldserve/ticket-tracker/internal/persistence"
	"github.com/fieldserve/ticket-tracker/internal/repository"
	"github.com/fieldserve/ticket-tracker/internal/service"
	"github.com/fieldserve/ticket-tracker/internal/worker"
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

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	sequenceRepo := repository.NewSequenceRepository(pool)
	estimateRepo := repository.NewEstimateFileRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	timeEntryRepo := repository.NewTimeEntryRepository(pool)

	systemClock := clock.NewSystem()
	vocabulary := domain.ParseStatusVocabulary(cfg.Tickets.Statuses)
	dispatcher := events.NewInMemoryDispatcher()
	mailer := mail.NewSMTPMailer(cfg.Mail)
	geocoder := geocode.NewClient(cfg.Geocoder)

	allocator, err := service.NewTicketNumberAllocator(sequenceRepo, systemClock, cfg.Tickets.BusinessTimezone)
	if err != nil {
		logger.Fatal("failed to init ticket number allocator", zap.Error(err))
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		EstimateRepo: estimateRepo,
		Numbers:      allocator,
		Geocoder:     geocoder,
		Mailer:       mailer,
		Dispatcher:   dispatcher,
		Vocabulary:   vocabulary,
		Clock:        systemClock,
		Logger:       logger,
	})
	statsService := service.NewStatsService(ticketRepo, redis, vocabulary, cfg.Tickets.StatsCacheTTL(), logger)
	authService := service.NewAuthService(cfg.Auth, userRepo)
	timeEntryService := service.NewTimeEntryService(timeEntryRepo, systemClock)

	notificationService := service.NewNotificationService(dispatcher, mailer, logger)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{BodyLimit: 32 * 1024 * 1024})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Stats:          handlers.NewStatsHandler(statsService),
		Users:          handlers.NewUsersHandler(authService),
		TimeEntries:    handlers.NewTimeEntriesHandler(timeEntryService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
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
