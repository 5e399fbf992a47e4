package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/services"
)

type disputeApplicationService interface {
	OpenDispute(ctx context.Context, menteeID int64, sessionID int64, input services.OpenDisputeInput) (*models.SessionDispute, error)
	MarkUnderReview(ctx context.Context, disputeID int64) (*models.SessionDispute, error)
	ResolveDispute(ctx context.Context, adminID int64, disputeID int64, input services.ResolveDisputeInput) (*models.SessionDispute, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.SessionDispute, error)
}

type DisputeHandler struct {
	service disputeApplicationService
}

func NewDisputeHandler(service *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{service: service}
}

type openDisputeRequest struct {
	Reason      string  `json:"reason"`
	Description *string `json:"description"`
}

func (h *DisputeHandler) OpenDispute(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "mentee" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	menteeID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req openDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason is required"})
	}

	dispute, err := h.service.OpenDispute(c.Context(), menteeID, sessionID, services.OpenDisputeInput{
		Reason:      strings.TrimSpace(req.Reason),
		Description: req.Description,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"dispute": dispute})
}

func (h *DisputeHandler) MarkUnderReview(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	disputeID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid dispute id"})
	}

	dispute, err := h.service.MarkUnderReview(c.Context(), disputeID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"dispute": dispute})
}

type resolveDisputeRequest struct {
	Resolution   string  `json:"resolution"`
	RefundAmount string  `json:"refund_amount"`
	AdminNotes   *string `json:"admin_notes"`
}

func (h *DisputeHandler) ResolveDispute(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	adminID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	disputeID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid dispute id"})
	}

	var req resolveDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	resolution := models.DisputeResolution(strings.TrimSpace(req.Resolution))
	if !resolution.Valid() {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "resolution must be refund_mentee, release_to_mentor or dismissed"})
	}

	refundAmount := decimal.Zero
	if resolution == models.ResolutionRefundMentee {
		refundAmount, err = parsePositiveDecimal(req.RefundAmount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "refund_amount must be a positive number"})
		}
	}

	dispute, err := h.service.ResolveDispute(c.Context(), adminID, disputeID, services.ResolveDisputeInput{
		Resolution:   resolution,
		RefundAmount: refundAmount,
		AdminNotes:   req.AdminNotes,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"dispute": dispute})
}

func (h *DisputeHandler) ListSessionDisputes(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	disputes, err := h.service.ListBySession(c.Context(), sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"disputes": disputes})
}
