package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/services"
)

type stubSessionService struct {
	bookResult      *models.SessionDetail
	bookErr         error
	cancelResult    *models.SessionDetail
	cancelErr       error
	startResult     *models.SessionDetail
	startErr        error
	completeResult  *models.SessionDetail
	completeErr     error
	getResult       *models.SessionDetail
	getErr          error
	listResult      []models.SessionDetail
	listErr         error
	lastBookInput   services.BookSessionInput
	lastCancelInput services.CancelSessionInput
	lastActorID     int64
	lastRole        string
	lastSessionID   int64
	lastListFilter  repository.SessionListFilter
}

func (s *stubSessionService) BookSession(_ context.Context, menteeID int64, input services.BookSessionInput) (*models.SessionDetail, error) {
	s.lastActorID = menteeID
	s.lastBookInput = input
	return s.bookResult, s.bookErr
}

func (s *stubSessionService) CancelSession(_ context.Context, actorID int64, role string, sessionID int64, input services.CancelSessionInput) (*models.SessionDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	s.lastCancelInput = input
	return s.cancelResult, s.cancelErr
}

func (s *stubSessionService) StartSession(_ context.Context, actorID int64, role string, sessionID int64) (*models.SessionDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	return s.startResult, s.startErr
}

func (s *stubSessionService) CompleteSession(_ context.Context, actorID int64, role string, sessionID int64) (*models.SessionDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	return s.completeResult, s.completeErr
}

func (s *stubSessionService) GetSession(_ context.Context, actorID int64, role string, sessionID int64) (*models.SessionDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	return s.getResult, s.getErr
}

func (s *stubSessionService) ListSessions(_ context.Context, actorID int64, role string, filter repository.SessionListFilter) ([]models.SessionDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastListFilter = filter
	return s.listResult, s.listErr
}

func newSessionTestApp(service sessionApplicationService, role, userID string) *fiber.App {
	handler := &SessionHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/sessions/book", handler.BookSession)
	app.Get("/api/v1/sessions", handler.ListSessions)
	app.Get("/api/v1/sessions/:id", handler.GetSession)
	app.Post("/api/v1/sessions/:id/cancel", handler.CancelSession)
	app.Post("/api/v1/sessions/:id/start", handler.StartSession)
	app.Post("/api/v1/sessions/:id/complete", handler.CompleteSession)
	return app
}

func TestBookSessionReturnsCreatedSession(t *testing.T) {
	service := &stubSessionService{
		bookResult: &models.SessionDetail{
			Session: models.Session{
				ID:              91,
				MenteeID:        42,
				MentorID:        7,
				TimeSlotID:      13,
				Status:          models.SessionPending,
				DurationMinutes: 60,
			},
			Payment: &models.Payment{Status: models.PaymentPending},
		},
	}
	app := newSessionTestApp(service, "mentee", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"time_slot_id": 13,
		"topic": "system design interview prep"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 {
		t.Fatalf("expected actor id 42, got %d", service.lastActorID)
	}
	if service.lastBookInput.TimeSlotID != 13 {
		t.Fatalf("expected time slot id 13, got %d", service.lastBookInput.TimeSlotID)
	}

	var body struct {
		Session models.SessionDetail `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Session.ID != 91 {
		t.Fatalf("expected session id 91, got %d", body.Session.ID)
	}
}

func TestBookSessionRejectsMentorRole(t *testing.T) {
	service := &stubSessionService{}
	app := newSessionTestApp(service, "mentor", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{"time_slot_id": 13}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestBookSessionMapsSlotConflict(t *testing.T) {
	service := &stubSessionService{bookErr: services.ErrSlotUnavailable}
	app := newSessionTestApp(service, "mentee", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{"time_slot_id": 13}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCancelSessionRequiresReason(t *testing.T) {
	service := &stubSessionService{}
	app := newSessionTestApp(service, "mentee", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/91/cancel", strings.NewReader(`{"reason": "too short"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCancelSessionPassesReasonThrough(t *testing.T) {
	service := &stubSessionService{
		cancelResult: &models.SessionDetail{
			Session: models.Session{ID: 91, Status: models.SessionCancelled},
		},
	}
	app := newSessionTestApp(service, "mentee", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/91/cancel", strings.NewReader(`{
		"reason": "mentor asked to move the call"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 91 {
		t.Fatalf("expected session id 91, got %d", service.lastSessionID)
	}
	if service.lastCancelInput.Reason != "mentor asked to move the call" {
		t.Fatalf("unexpected reason %q", service.lastCancelInput.Reason)
	}
}

func TestCompleteSessionMapsInvalidTransition(t *testing.T) {
	service := &stubSessionService{completeErr: services.ErrInvalidStateTransition}
	app := newSessionTestApp(service, "mentor", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/91/complete", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestListSessionsPassesFilter(t *testing.T) {
	service := &stubSessionService{listResult: []models.SessionDetail{}}
	app := newSessionTestApp(service, "mentor", "7")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?status=confirmed&timeframe=upcoming", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRole != "mentor" {
		t.Fatalf("expected role mentor, got %q", service.lastRole)
	}
	if service.lastListFilter.Status != "confirmed" || service.lastListFilter.Timeframe != "upcoming" {
		t.Fatalf("unexpected filter %+v", service.lastListFilter)
	}
}

func TestListSessionsRejectsBadTimeframe(t *testing.T) {
	service := &stubSessionService{}
	app := newSessionTestApp(service, "mentee", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?timeframe=yesterday", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
