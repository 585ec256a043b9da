package handlers

import (
	"strings"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/anjiri1684/smart_roommate/middleware"
	"github.com/anjiri1684/smart_roommate/services"
	"github.com/gofiber/fiber/v2"
)

// CreateConversationRequest starts a direct conversation when RecipientID is given, otherwise a
// group conversation with MemberIDs.
type CreateConversationRequest struct {
	RecipientID    services.FlexibleValue   `json:"recipientId"`
	MemberIDs      []services.FlexibleValue `json:"memberIds"`
	PropertyID     services.FlexibleValue   `json:"propertyId"`
	Name           string                   `json:"name"`
	InitialMessage string                   `json:"initialMessage"`
}

type PostMessageRequest struct {
	Body string `json:"body"`
}

type RenameConversationRequest struct {
	Name string `json:"name" validate:"max=120"`
}

type MessagingHandler struct {
	directory *services.ConversationDirectory
}

func NewMessagingHandler(directory *services.ConversationDirectory) *MessagingHandler {
	return &MessagingHandler{directory: directory}
}

func (h *MessagingHandler) GetUserConversations(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	summaries, err := h.directory.ListConversationsFor(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if summaries == nil {
		summaries = []services.ConversationSummary{}
	}
	return c.JSON(summaries)
}

func (h *MessagingHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	var req CreateConversationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()

	var (
		conversationID uint
		created        bool
	)
	if req.RecipientID.Set() {
		recipient, ok := req.RecipientID.Int()
		if !ok || recipient <= 0 {
			return apperrors.InvalidRecipient("Invalid recipient.")
		}
		var listing *uint
		if req.PropertyID.Set() {
			id, ok := req.PropertyID.Int()
			if !ok || id <= 0 {
				return apperrors.Validation("Invalid property id.")
			}
			l := uint(id)
			listing = &l
		}
		conversationID, created, err = h.directory.FindOrCreateDirect(ctx, userID, uint(recipient), listing)
	} else {
		members := make([]uint, 0, len(req.MemberIDs))
		for _, m := range req.MemberIDs {
			id, ok := m.Int()
			if !ok || id <= 0 {
				return apperrors.Validation("Invalid member id.")
			}
			members = append(members, uint(id))
		}
		conversationID, err = h.directory.CreateGroup(ctx, userID, members, req.Name)
		created = err == nil
	}
	if err != nil {
		return err
	}

	if created && strings.TrimSpace(req.InitialMessage) != "" {
		if _, err := h.directory.PostMessage(ctx, conversationID, userID, req.InitialMessage); err != nil {
			return err
		}
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"id": conversationID})
}

func (h *MessagingHandler) RenameConversation(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", "conversation")
	if err != nil {
		return err
	}
	var req RenameConversationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validateStruct(req); err != nil {
		return err
	}
	if err := h.directory.RenameConversation(c.UserContext(), id, userID, req.Name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Conversation updated"})
}

func (h *MessagingHandler) GetConversationMessages(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", "conversation")
	if err != nil {
		return err
	}
	msgs, err := h.directory.ListMessages(c.UserContext(), id, userID)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []services.MessageView{}
	}
	return c.JSON(msgs)
}

func (h *MessagingHandler) PostMessage(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", "conversation")
	if err != nil {
		return err
	}
	var req PostMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msgID, err := h.directory.PostMessage(c.UserContext(), id, userID, req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": msgID})
}

func (h *MessagingHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	n, err := h.directory.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": n})
}
