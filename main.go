package main

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"groclist/config"
	controller "groclist/controllers"
	"groclist/middleware"
	"groclist/routes"
	"groclist/utils"
	"groclist/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize Sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	mailer := utils.NewMailer(logger.WithField("component", "mailer"))
	hub := controller.NewHub()

	// Background workers share one cancellable context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reminderWorker := worker.NewReminderWorker(config.DB, mailer, logger.WithField("component", "reminder_worker"))
	go reminderWorker.Start(ctx)

	correlationWorker := worker.NewCorrelationWorker(config.DB, logger.WithField("component", "correlation_worker"))
	go correlationWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, logger, hub, mailer)

	// Start server
	logger.Infof("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
