package routes

import (
	"github.com/anjiri1684/smart_roommate/handlers"
	"github.com/gofiber/fiber/v2"
)

func MessagingRoutes(app *fiber.App, h *handlers.MessagingHandler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	conversations := api.Group("/conversations", protected)
	conversations.Get("", h.GetUserConversations)
	conversations.Post("", h.CreateOrGetConversation)
	conversations.Get("/unread-count", h.UnreadCount)
	conversations.Put("/:id", h.RenameConversation)
	conversations.Get("/:id/messages", h.GetConversationMessages)
	conversations.Post("/:id/messages", h.PostMessage)
}
