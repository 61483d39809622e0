package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/config"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/events"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/handler"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/logger"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/metrics"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/repository"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/scheduler"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.Server.LogLevel)

	// Connect to database
	repo, err := repository.New(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var background sync.WaitGroup

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observers := accrual.Observers{metrics.MustNewMetrics(registry)}

	// Event publishing is optional
	var publisher *events.Publisher
	if cfg.Broker.URL != "" {
		publisher, err = events.Dial(cfg.Broker.URL, cfg.Broker.Queue, log)
		if err != nil {
			log.WithError(err).Warn("Event publishing disabled")
		} else {
			observers = append(observers, publisher)
			background.Add(1)
			go func() {
				defer background.Done()
				publisher.Run(ctx)
			}()
			log.WithField("queue", cfg.Broker.Queue).Info("Publishing reward events")
		}
	}

	// Create services
	engine := accrual.NewEngine(repo, log,
		accrual.WithWorkers(cfg.Rewards.Workers),
		accrual.WithObserver(observers),
	)
	planSvc := service.NewPlanService(repo)
	subscriptionSvc := service.NewSubscriptionService(repo, log)
	balanceSvc := service.NewBalanceService(repo, log)
	settingsSvc := service.NewSettingsService(repo)
	discountSvc := service.NewCategoryDiscountService(repo, log)
	rewardSvc := service.NewRewardService(engine, settingsSvc, log)
	auditSvc := service.NewAdminLogService(repo, log)

	sched, err := scheduler.New(scheduler.Config{
		Schedule:  cfg.Rewards.Schedule,
		Location:  cfg.Rewards.Location,
		Predicate: scheduler.BusinessDays(cfg.Rewards.Location, cfg.Rewards.Holidays),
	}, rewardSvc, log)
	if err != nil {
		log.Fatalf("Failed to create reward scheduler: %v", err)
	}

	h := handler.New(handler.Deps{
		DB:            repo,
		Plans:         planSvc,
		Subscriptions: subscriptionSvc,
		Balances:      balanceSvc,
		Settings:      settingsSvc,
		Discounts:     discountSvc,
		Rewards:       rewardSvc,
		Trigger:       sched,
		Audit:         auditSvc,
		Location:      cfg.Rewards.Location,
		Log:           log,
	})

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	h.Register(app, cfg.Auth.JWTSecret, cfg.Auth.CronSecret)

	// Start background jobs
	if cfg.Rewards.Enabled {
		sched.Start(ctx)
	} else {
		log.Info("Reward scheduler disabled, runs only on demand")
	}

	expiryWorker := service.NewExpiryWorker(subscriptionSvc, config.SubscriptionExpiryInterval, log)
	background.Add(1)
	go func() {
		defer background.Done()
		expiryWorker.Start(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		// Runs in flight must finish while the publisher still drains events.
		sched.Stop()
		_ = app.Shutdown()
		cancel()
	}()

	// Start server
	log.WithField("port", cfg.Server.Port).Info("Server starting")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	background.Wait()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("Failed to close event publisher")
		}
	}
	log.Info("Server stopped")
}
