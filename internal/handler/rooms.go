package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartcity-intake/internal/service"
)

// RoomHandler serves bed inventory views.
type RoomHandler struct {
	beds *service.BedLifecycle
}

func NewRoomHandler(beds *service.BedLifecycle) *RoomHandler {
	return &RoomHandler{beds: beds}
}

// List returns every room with its free bed count and availability.
func (h *RoomHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	rooms, err := h.beds.GetRoomsSummary(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rooms)
}

// Beds lists the beds of one room.
func (h *RoomHandler) Beds(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid room id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	beds, err := h.beds.GetRoomBeds(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, beds)
}

// Detailed is the admin view: every room with all of its beds.
func (h *RoomHandler) Detailed(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	rooms, err := h.beds.GetRoomsWithBeds(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rooms)
}
