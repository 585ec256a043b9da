package routes

import (
	"github.com/anjiri1684/smart_roommate/handlers"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(app *fiber.App, h *handlers.UploadHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	uploads := api.Group("/uploads", protected)
	uploads.Post("", h.UploadImages)
	uploads.Get("/signature", h.GenerateUploadSignature)
}
