package routes

import (
	"github.com/anjiri1684/smart_roommate/handlers"
	"github.com/gofiber/fiber/v2"
)

// PropertyRoutes serves browsing publicly; writes need a token.
func PropertyRoutes(app *fiber.App, h *handlers.PropertyHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	properties := api.Group("/properties")
	properties.Get("", h.ListProperties)
	properties.Get("/:id", h.GetProperty)
	properties.Post("", protected, h.CreateProperty)
	properties.Put("/:id", protected, h.UpdateProperty)
	properties.Delete("/:id", protected, h.DeleteProperty)
}
