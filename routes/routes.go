package routes

import (
	"github.com/anjiri1684/smart_roommate/handlers"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Profile   *handlers.ProfileHandler
	Property  *handlers.PropertyHandler
	Messaging *handlers.MessagingHandler
	Upload    *handlers.UploadHandler
}

// Setup mounts every route group. protected guards the authenticated ones.
func Setup(app *fiber.App, h Handlers, protected fiber.Handler) {
	PublicRoutes(app)
	AuthRoutes(app, h.Auth)
	ProfileRoutes(app, h.Profile, protected)
	PropertyRoutes(app, h.Property, protected)
	MessagingRoutes(app, h.Messaging, protected)
	UploadRoutes(app, h.Upload, protected)
}
