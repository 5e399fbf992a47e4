package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/services"
)

type slotApplicationService interface {
	CreateSlot(ctx context.Context, mentorID int64, input services.CreateSlotInput) (*models.TimeSlot, error)
	ListSlots(ctx context.Context, mentorID int64, onlyAvailable bool) ([]models.TimeSlot, error)
}

type SlotHandler struct {
	service slotApplicationService
}

func NewSlotHandler(service *services.SlotService) *SlotHandler {
	return &SlotHandler{service: service}
}

type createSlotRequest struct {
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (h *SlotHandler) CreateSlot(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "mentor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	mentorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "start_time must be a valid RFC3339 timestamp"})
	}

	slot, err := h.service.CreateSlot(c.Context(), mentorID, services.CreateSlotInput{
		StartTime:       startTime,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"slot": slot})
}

func (h *SlotHandler) ListMentorSlots(c *fiber.Ctx) error {
	mentorID, err := strconv.ParseInt(c.Params("mentorId"), 10, 64)
	if err != nil || mentorID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mentor id"})
	}

	onlyAvailable := c.Query("available") != "false"
	slots, err := h.service.ListSlots(c.Context(), mentorID, onlyAvailable)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"slots": slots})
}
