package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/seekersapp2013/ambrosia/app/controllers"
	"github.com/seekersapp2013/ambrosia/internal/pkg/constants"
	"github.com/seekersapp2013/ambrosia/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(), middleware.IdentityMiddleware())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group(constants.APIv1Route)

	streams := v1.Group(constants.StreamsPath)
	streams.Get("/", controllers.HandleListStreams)
	streams.Get("/metrics", controllers.HandleStreamMetrics)
	streams.Get("/events", controllers.HandleStreamEvents)
	streams.Post("/", middleware.RequireUser, controllers.HandleCreateStream)
	streams.Get("/:id", controllers.HandleGetStream)
	streams.Post("/:id/start", middleware.RequireUser, controllers.HandleStartStream)
	streams.Post("/:id/stop", middleware.RequireUser, controllers.HandleStopStream)
	streams.Post("/:id/token", middleware.RequireUser, controllers.HandleStreamToken)
	streams.Post("/:id/leave", middleware.RequireUser, controllers.HandleLeaveStream)
	streams.Post("/:id/error", middleware.RequireUser, controllers.HandleReportStreamFailure)

	v1.Get("/me/streams", middleware.RequireUser, controllers.HandleListMyStreams)

	v1.Get(constants.AccessPath, controllers.HandleCheckAccess)
	v1.Post("/payments", middleware.RequireUser, controllers.HandlePurchaseContent)
	v1.Get("/payments", middleware.RequireUser, controllers.HandleListPurchases)
	v1.Get("/payments/earnings", middleware.RequireUser, controllers.HandleCreatorEarnings)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
