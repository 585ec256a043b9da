package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/smart_roommate/configs"
	"github.com/anjiri1684/smart_roommate/database"
	"github.com/anjiri1684/smart_roommate/handlers"
	"github.com/anjiri1684/smart_roommate/jobs"
	"github.com/anjiri1684/smart_roommate/logger"
	"github.com/anjiri1684/smart_roommate/middleware"
	"github.com/anjiri1684/smart_roommate/notifications"
	"github.com/anjiri1684/smart_roommate/routes"
	"github.com/anjiri1684/smart_roommate/services"
	"github.com/anjiri1684/smart_roommate/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	zl, err := logger.New(settings.LogJSON, settings.LogDebug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	db, err := database.Connect(settings.DatabaseURL, settings.LogDebug, database.Pool{
		MaxOpenConns:    settings.DBMaxOpenConns,
		MaxIdleConns:    settings.DBMaxIdleConns,
		ConnMaxLifetime: settings.DBConnMaxLifetime,
	}, zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	if err := database.Migrate(db, zl); err != nil {
		zl.Fatal("migration", zap.Error(err))
	}

	users := database.NewUserStore(db)
	properties := database.NewPropertyStore(db)
	conversations := database.NewConversationStore(db)

	mailer := notifications.NewMailer(settings.BrevoAPIKey, settings.EmailSender, settings.EmailSenderName, zl)
	notifier := notifications.NewMessageNotifier(mailer, settings.AppBaseURL, zl)

	directory := services.NewConversationDirectory(conversations, users, properties, notifier, zl)
	directory.NotifyTimeout = settings.NotifyTimeout
	auth := services.NewAuthService(users, mailer, services.AuthConfig{
		JWTSecret:  settings.JWTSecret,
		TokenTTL:   settings.JWTTTL,
		AppBaseURL: settings.AppBaseURL,
	}, zl)

	var uploader handlers.Uploader
	if store, err := storage.NewCloudinaryStore(settings.CloudinaryURL, settings.UploadFolder, zl); err == nil {
		uploader = store
	} else {
		zl.Warn("image uploads disabled", zap.Error(err))
	}

	c := cron.New()
	if err := jobs.Schedule(c, users, zl); err != nil {
		zl.Fatal("scheduling jobs", zap.Error(err))
	}
	c.Start()
	zl.Info("cron jobs scheduled")

	app := fiber.New(fiber.Config{
		AppName:       "Smart Roommate",
		CaseSensitive: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		BodyLimit:     handlers.BodyLimit,
		ErrorHandler:  handlers.ErrorHandler(zl),
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: settings.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		MaxAge:       86400,
	}))
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/v1/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))

	routes.Setup(app, routes.Handlers{
		Auth:      handlers.NewAuthHandler(auth),
		Profile:   handlers.NewProfileHandler(services.NewProfileService(users, zl)),
		Property:  handlers.NewPropertyHandler(services.NewPropertyService(properties, zl)),
		Messaging: handlers.NewMessagingHandler(directory),
		Upload:    handlers.NewUploadHandler(uploader),
	}, middleware.Protected(settings.JWTSecret))

	go func() {
		zl.Info("server listening", zap.String("port", settings.Port))
		if err := app.Listen(":" + settings.Port); err != nil && !errors.Is(err, context.Canceled) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
	<-c.Stop().Done()
	directory.Wait()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
