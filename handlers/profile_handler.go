package handlers

import (
	"github.com/anjiri1684/smart_roommate/middleware"
	"github.com/anjiri1684/smart_roommate/services"
	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	user, err := h.profiles.GetProfile(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	var req services.UpdateProfileInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.profiles.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *ProfileHandler) ListRoommates(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	matches, err := h.profiles.ListRoommates(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if matches == nil {
		matches = []services.RoommateMatch{}
	}
	return c.JSON(matches)
}
