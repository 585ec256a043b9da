package routes

import (
	"github.com/anjiri1684/smart_roommate/handlers"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App, h *handlers.ProfileHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	users := api.Group("/users", protected)
	users.Get("/me", h.GetProfile)
	users.Put("/me", h.UpdateProfile)
	users.Get("/roommates", h.ListRoommates)
}
