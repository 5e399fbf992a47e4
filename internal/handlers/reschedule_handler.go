package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/services"
)

type rescheduleApplicationService interface {
	RequestReschedule(ctx context.Context, actorID int64, role string, sessionID int64, input services.RequestRescheduleInput) (*models.SessionReschedule, error)
	ApproveReschedule(ctx context.Context, actorID int64, role string, sessionID int64) (*models.SessionDetail, error)
	RejectReschedule(ctx context.Context, actorID int64, role string, sessionID int64) (*models.SessionReschedule, error)
}

type RescheduleHandler struct {
	service rescheduleApplicationService
}

func NewRescheduleHandler(service *services.RescheduleService) *RescheduleHandler {
	return &RescheduleHandler{service: service}
}

type requestRescheduleRequest struct {
	NewTimeSlotID int64  `json:"new_time_slot_id"`
	Reason        string `json:"reason"`
}

func (h *RescheduleHandler) RequestReschedule(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req requestRescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.NewTimeSlotID <= 0 || strings.TrimSpace(req.Reason) == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "new_time_slot_id and reason are required"})
	}

	reschedule, err := h.service.RequestReschedule(c.Context(), actorID, role, sessionID, services.RequestRescheduleInput{
		NewTimeSlotID: req.NewTimeSlotID,
		Reason:        strings.TrimSpace(req.Reason),
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reschedule": reschedule})
}

func (h *RescheduleHandler) ApproveReschedule(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.ApproveReschedule(c.Context(), actorID, role, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *RescheduleHandler) RejectReschedule(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	reschedule, err := h.service.RejectReschedule(c.Context(), actorID, role, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"reschedule": reschedule})
}
