package handlers

import (
	"strconv"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/anjiri1684/smart_roommate/middleware"
	"github.com/anjiri1684/smart_roommate/services"
	"github.com/gofiber/fiber/v2"
)

type PropertyHandler struct {
	properties *services.PropertyService
}

func NewPropertyHandler(properties *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

func (h *PropertyHandler) ListProperties(c *fiber.Ctx) error {
	filter := services.PropertyFilter{
		MinPrice: services.Flex(c.Query("min_price")),
		MaxPrice: services.Flex(c.Query("max_price")),
		RoomsMin: services.Flex(c.Query("rooms_min")),
		RoomsMax: services.Flex(c.Query("rooms_max")),
		Cities:   c.Query("cities"),
		Search:   c.Query("q"),
		Lat:      services.Flex(c.Query("lat")),
		Lng:      services.Flex(c.Query("lng")),
		RadiusKm: services.Flex(c.Query("radius_km")),
	}
	if raw := c.Query("owner_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return apperrors.Validation("Invalid owner_id")
		}
		owner := uint(id)
		filter.OwnerID = &owner
	}

	views, err := h.properties.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(views)
}

func (h *PropertyHandler) GetProperty(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "property")
	if err != nil {
		return err
	}
	view, err := h.properties.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *PropertyHandler) CreateProperty(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	var req services.PropertyInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validateStruct(req); err != nil {
		return err
	}
	view, err := h.properties.Create(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *PropertyHandler) UpdateProperty(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", "property")
	if err != nil {
		return err
	}
	var req services.PropertyInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validateStruct(req); err != nil {
		return err
	}
	view, err := h.properties.Update(c.UserContext(), userID, id, req)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *PropertyHandler) DeleteProperty(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", "property")
	if err != nil {
		return err
	}
	if err := h.properties.Delete(c.UserContext(), userID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Property deleted"})
}
