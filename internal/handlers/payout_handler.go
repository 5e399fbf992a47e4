package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/services"
)

type payoutApplicationService interface {
	RequestPayout(ctx context.Context, mentorID int64, amount decimal.Decimal) (*models.Payout, error)
	CancelPayout(ctx context.Context, mentorID, payoutID int64) (*models.Payout, error)
	GetBalance(ctx context.Context, mentorID int64) (*models.MentorBalance, error)
	ListPayouts(ctx context.Context, mentorID int64) ([]models.Payout, error)
	MarkProcessing(ctx context.Context, payoutID int64) (*models.Payout, error)
	MarkCompleted(ctx context.Context, payoutID int64) (*models.Payout, error)
	MarkFailed(ctx context.Context, payoutID int64, reason string) (*models.Payout, error)
}

type PayoutHandler struct {
	service payoutApplicationService
}

func NewPayoutHandler(service *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{service: service}
}

type requestPayoutRequest struct {
	Amount string `json:"amount"`
}

func (h *PayoutHandler) GetBalance(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "mentor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	mentorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	balance, err := h.service.GetBalance(c.Context(), mentorID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"balance": balance})
}

func (h *PayoutHandler) RequestPayout(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "mentor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	mentorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req requestPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	amount, err := parsePositiveDecimal(strings.TrimSpace(req.Amount))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a positive number"})
	}

	payout, err := h.service.RequestPayout(c.Context(), mentorID, amount)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payout": payout})
}

func (h *PayoutHandler) CancelPayout(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "mentor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	mentorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	payoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout id"})
	}

	payout, err := h.service.CancelPayout(c.Context(), mentorID, payoutID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payout": payout})
}

// MarkProcessing, MarkCompleted and MarkFailed are the payment processor's
// side of the payout lifecycle, gated to admin operators.
func (h *PayoutHandler) MarkProcessing(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	payoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout id"})
	}

	payout, err := h.service.MarkProcessing(c.Context(), payoutID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payout": payout})
}

func (h *PayoutHandler) MarkCompleted(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	payoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout id"})
	}

	payout, err := h.service.MarkCompleted(c.Context(), payoutID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payout": payout})
}

type failPayoutRequest struct {
	Reason string `json:"reason"`
}

func (h *PayoutHandler) MarkFailed(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	payoutID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout id"})
	}

	var req failPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason is required"})
	}

	payout, err := h.service.MarkFailed(c.Context(), payoutID, reason)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payout": payout})
}

func (h *PayoutHandler) ListPayouts(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != "mentor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	mentorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	payouts, err := h.service.ListPayouts(c.Context(), mentorID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payouts": payouts})
}
