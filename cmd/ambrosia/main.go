package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/seekersapp2013/ambrosia/app/controllers"
	"github.com/seekersapp2013/ambrosia/app/repository"
	"github.com/seekersapp2013/ambrosia/internal/pkg/archive"
	"github.com/seekersapp2013/ambrosia/internal/pkg/cache"
	"github.com/seekersapp2013/ambrosia/internal/pkg/database"
	"github.com/seekersapp2013/ambrosia/internal/pkg/entitlements"
	"github.com/seekersapp2013/ambrosia/internal/pkg/env"
	"github.com/seekersapp2013/ambrosia/internal/pkg/livekit"
	"github.com/seekersapp2013/ambrosia/internal/pkg/metrics/counter"
	"github.com/seekersapp2013/ambrosia/internal/pkg/payments"
	"github.com/seekersapp2013/ambrosia/internal/pkg/router"
	"github.com/seekersapp2013/ambrosia/internal/pkg/streams"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	factory := repository.GetGlobalFactory()

	evaluator := entitlements.NewEvaluator(
		factory.GetContentRepository(),
		factory.GetPaymentRepository(),
	)
	paymentService := payments.NewService(
		factory.GetContentRepository(),
		factory.GetPaymentRepository(),
		factory.GetNotificationRepository(),
	)

	roomClient := livekit.NewRoomServiceClientFromEnv()
	finalizer := archive.NewFinalizer(
		factory.GetStreamRepository(),
		factory.GetContentRepository(),
		roomClient,
	)
	finalizer.Start()

	registry := streams.NewRegistry(
		factory.GetStreamRepository(),
		factory.GetUserRepository(),
		evaluator,
		roomClient,
		finalizer,
	)

	signer := livekit.NewSignerFromEnv()
	issuer := livekit.NewIssuer(registry, signer, factory.GetUserRepository(), livekit.DefaultTokenTTL)

	controllers.InitStreamController(registry, issuer, roomClient)
	controllers.InitPaymentController(paymentService, evaluator)

	// periodic flush of pending join counters to the database
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := counter.FlushAll(); err != nil {
				fiberlog.Errorf("[Counter] Flush failed: %v", err)
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName: "ambrosia",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
