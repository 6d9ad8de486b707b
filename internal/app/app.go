// Package app assembles the service from configuration: stores, services,
// event subscribers and the Fiber application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/repair-service/internal/api/http"
	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/mq"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/persistence"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/seed"
	"github.com/spec-kit/repair-service/internal/service"
	"github.com/spec-kit/repair-service/internal/worker"
)

// Options overrides collaborators, mainly for tests.
type Options struct {
	Clock     func() time.Time
	Publisher mq.Publisher
	Seed      *seed.Data
}

// Application is the assembled service.
type Application struct {
	Fiber      *fiber.App
	Tickets    *service.TicketService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics

	closers []func()
}

// Close releases external connections in reverse order of creation.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

type stores struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	history repository.TicketHistoryRepository
}

// Build wires the whole service for cfg.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Application, error) {
	application := &Application{Metrics: observability.NewMetrics()}
	ok := false
	defer func() {
		if !ok {
			application.Close()
		}
	}()

	data, err := loadSeed(cfg, opts)
	if err != nil {
		return nil, err
	}

	var pg *persistence.Postgres
	var st stores
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		application.closers = append(application.closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				return nil, err
			}
		}
		st = stores{
			tickets: repository.NewTicketRepository(pg.Pool),
			users:   repository.NewUserRepository(pg.Pool),
			history: repository.NewTicketHistoryRepository(pg.Pool),
		}
		// Tickets are only seeded into the memory store; the database keeps its own.
		if data != nil {
			if err := data.ApplyUsers(ctx, st.users); err != nil {
				return nil, err
			}
		}
	default:
		st = memoryStores(data)
	}

	var redis *persistence.Redis
	var cache service.StatsCache
	if cfg.Redis.Addr != "" {
		redis = persistence.NewRedis(cfg.Redis, logger)
		application.closers = append(application.closers, redis.Close)
		cache = redis
	}

	publisher := opts.Publisher
	if publisher == nil && cfg.AMQP.URL != "" {
		rabbit, err := mq.NewRabbitPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			// Event forwarding is best effort; the service runs without a broker.
			logger.Warn("rabbitmq unavailable; events will not be forwarded", zap.Error(err))
		} else {
			publisher = rabbit
			application.closers = append(application.closers, func() { _ = rabbit.Close() })
		}
	}

	dispatcher := events.NewInMemoryDispatcher()
	feedbackService := service.NewFeedbackService(st.tickets, st.users)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  st.tickets,
		UserRepo:    st.users,
		HistoryRepo: st.history,
		Engine:      lifecycle.NewEngine(feedbackService),
		Dispatcher:  dispatcher,
		Metrics:     application.Metrics,
		Logger:      logger,
		Clock:       opts.Clock,
	})
	queryService := service.NewQueryService(st.tickets)
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Tickets:  ticketService,
		UserRepo: st.users,
	})
	taskService := service.NewTaskService(ticketService, opts.Clock)
	statsService := service.NewStatisticsService(service.StatisticsDependencies{
		TicketRepo: st.tickets,
		Feedback:   feedbackService,
		Cache:      cache,
		CacheTTL:   cfg.Stats.CacheTTL(),
		Logger:     logger,
	})
	authService := service.NewAuthService(cfg.Auth, st.users)
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:        st.users,
		BcryptCost:      cfg.Auth.BcryptCost,
		DefaultPassword: cfg.Auth.DefaultPassword,
		Logger:          logger,
		Clock:           opts.Clock,
	})
	notificationService := service.NewNotificationService(dispatcher, publisher, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notificationService, statsService)

	fiberApp := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(fiberApp, logger, application.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(fiberApp, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, application.Metrics),
		Auth:         handlers.NewAuthHandler(authService, userService),
		Meta:         handlers.NewMetaHandler(),
		RepairOrders: handlers.NewRepairOrdersHandler(ticketService, queryService, userService),
		Admin: handlers.NewAdminHandler(handlers.AdminDependencies{
			Tickets:    ticketService,
			Query:      queryService,
			Assignment: assignmentService,
			Feedback:   feedbackService,
			Stats:      statsService,
			Users:      userService,
		}),
		Tasks: handlers.NewTasksHandler(handlers.TasksDependencies{
			Tickets: ticketService,
			Tasks:   taskService,
			Query:   queryService,
			Stats:   statsService,
			Users:   userService,
		}),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), st.users),
	})

	application.Fiber = fiberApp
	application.Tickets = ticketService
	application.Dispatcher = dispatcher
	ok = true
	return application, nil
}

func memoryStores(data *seed.Data) stores {
	st := stores{history: repository.NewMemoryTicketHistoryRepository()}
	if data == nil {
		st.tickets = repository.NewMemoryTicketRepository(nil)
		st.users = repository.NewMemoryUserRepository(nil)
		return st
	}
	st.tickets = repository.NewMemoryTicketRepository(data.Tickets)
	st.users = repository.NewMemoryUserRepository(data.Users)
	return st
}

func loadSeed(cfg *config.Config, opts Options) (*seed.Data, error) {
	switch {
	case opts.Seed != nil:
		return opts.Seed, nil
	case cfg.Seed.Disabled:
		return nil, nil
	case cfg.Seed.File != "":
		return seed.LoadFile(cfg.Seed.File, cfg.Auth.BcryptCost)
	}
	return seed.Default(cfg.Auth.BcryptCost)
}
