package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/services"
)

type paymentApplicationService interface {
	ConfirmCapture(ctx context.Context, sessionID int64, providerTransactionID string) (*models.Payment, error)
	ConfirmFailure(ctx context.Context, sessionID int64) (*models.Payment, error)
}

// WebhookHandler receives payment provider callbacks. The provider retries
// until it gets a 2xx, so both endpoints answer success on replays.
type WebhookHandler struct {
	service paymentApplicationService
}

func NewWebhookHandler(service *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

type captureWebhookRequest struct {
	SessionID     int64  `json:"session_id"`
	TransactionID string `json:"transaction_id"`
}

type failureWebhookRequest struct {
	SessionID int64 `json:"session_id"`
}

func (h *WebhookHandler) PaymentCaptured(c *fiber.Ctx) error {
	var req captureWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.SessionID <= 0 || strings.TrimSpace(req.TransactionID) == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "session_id and transaction_id are required"})
	}

	payment, err := h.service.ConfirmCapture(c.Context(), req.SessionID, strings.TrimSpace(req.TransactionID))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payment": payment})
}

func (h *WebhookHandler) PaymentFailed(c *fiber.Ctx) error {
	var req failureWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.SessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_id is required"})
	}

	payment, err := h.service.ConfirmFailure(c.Context(), req.SessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payment": payment})
}
