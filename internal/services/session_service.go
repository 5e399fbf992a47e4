package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/policy"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type mentorProfileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.MentorProfile, error)
}

// SessionService owns the session lifecycle: booking, cancellation and
// completion. Every multi-entity mutation runs in one transaction; the
// repositories are rebuilt on the transaction handle for the duration.
type SessionService struct {
	db              *pgxpool.Pool
	sessionRepo     *repository.SessionRepository
	paymentRepo     *repository.PaymentRepository
	slotRepo        *repository.TimeSlotRepository
	jobRepo         *repository.ReleaseJobRepository
	userRepo        userReader
	mentorRepo      mentorProfileReader
	refundPolicy    *policy.RefundPolicy
	commission      decimal.Decimal
	holdingPeriod   time.Duration
	paymentProvider string
}

func NewSessionService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	paymentRepo *repository.PaymentRepository,
	slotRepo *repository.TimeSlotRepository,
	jobRepo *repository.ReleaseJobRepository,
	userRepo userReader,
	mentorRepo mentorProfileReader,
	refundPolicy *policy.RefundPolicy,
	commission decimal.Decimal,
	holdingPeriod time.Duration,
) *SessionService {
	return &SessionService{
		db:              db,
		sessionRepo:     sessionRepo,
		paymentRepo:     paymentRepo,
		slotRepo:        slotRepo,
		jobRepo:         jobRepo,
		userRepo:        userRepo,
		mentorRepo:      mentorRepo,
		refundPolicy:    refundPolicy,
		commission:      commission,
		holdingPeriod:   holdingPeriod,
		paymentProvider: "stripe",
	}
}

type BookSessionInput struct {
	TimeSlotID int64
	Topic      *string
	Notes      *string
}

// BookSession claims a slot for the mentee and opens the escrow payment.
// Session, payment and slot all change in one transaction; the is_booked
// guard on the slot makes concurrent bookings of the same slot fail
// immediately instead of blocking.
func (s *SessionService) BookSession(
	ctx context.Context,
	menteeID int64,
	input BookSessionInput,
) (*models.SessionDetail, error) {
	if input.TimeSlotID <= 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSlotRepo := repository.NewTimeSlotRepository(tx)
	txSessionRepo := repository.NewSessionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	slot, err := txSlotRepo.GetByIDForUpdate(ctx, input.TimeSlotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	if slot.IsBooked || !slot.StartTime.After(time.Now().UTC()) {
		return nil, ErrSlotUnavailable
	}
	if slot.MentorID == menteeID {
		return nil, ErrInvalidInput
	}

	mentor, err := s.userRepo.GetByID(ctx, slot.MentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMentorNotFound
		}
		return nil, err
	}
	if mentor.Role != "mentor" {
		return nil, ErrMentorNotFound
	}

	profile, err := s.mentorRepo.GetByUserID(ctx, slot.MentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMentorNotFound
		}
		return nil, err
	}
	if profile.HourlyRate == nil || !profile.HourlyRate.IsPositive() {
		return nil, ErrMentorNotFound
	}

	price := profile.HourlyRate.
		Mul(decimal.NewFromInt(int64(slot.DurationMinutes))).
		Div(decimal.NewFromInt(60)).
		Round(2)

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		MenteeID:        menteeID,
		MentorID:        slot.MentorID,
		TimeSlotID:      slot.ID,
		DurationMinutes: slot.DurationMinutes,
		ScheduledStart:  slot.StartTime.UTC(),
		ScheduledEnd:    slot.EndTime().UTC(),
		Price:           price,
		Topic:           input.Topic,
		Notes:           input.Notes,
	})
	if err != nil {
		return nil, err
	}

	if _, err := txSlotRepo.MarkBooked(ctx, slot.ID, session.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	intentID := uuid.NewString()
	payment, err := txPaymentRepo.Create(ctx, repository.CreatePaymentInput{
		SessionID:          session.ID,
		MenteeID:           menteeID,
		MentorID:           slot.MentorID,
		Provider:           s.paymentProvider,
		ProviderIntentID:   &intentID,
		Amount:             price,
		PlatformCommission: s.commission,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicatePayment
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &models.SessionDetail{Session: *session, Payment: payment}, nil
}

type CancelSessionInput struct {
	Reason string
}

// CancelSession terminates a session before completion. The refund policy
// decides what the mentee gets back; escrow already credited to the mentor's
// pending balance is withdrawn in the same transaction. The scheduled release
// job is left alone: its own refunded-payment check turns it into a no-op.
func (s *SessionService) CancelSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	input CancelSessionInput,
) (*models.SessionDetail, error) {
	if len(input.Reason) < models.MinCancellationReasonLength {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txSlotRepo := repository.NewTimeSlotRepository(tx)
	txCancellationRepo := repository.NewCancellationRepository(tx)
	txBalanceRepo := repository.NewMentorBalanceRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canActOnSession(role, actorID, session) {
		return nil, ErrForbidden
	}
	if !session.CanCancel() {
		return nil, ErrInvalidStateTransition
	}

	payment, err := txPaymentRepo.GetBySessionIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if payment.IsReleasedToMentor {
		return nil, ErrAlreadyReleased
	}

	refundStatus := models.RefundNone
	percentage, refundAmount := decimal.Zero, decimal.Zero
	if payment.Status == models.PaymentCaptured {
		percentage, refundAmount = s.refundPolicy.Calculate(
			time.Now().UTC(), session.ScheduledStart, payment.Amount,
		)
		if _, err := txPaymentRepo.ApplyRefund(ctx, payment.ID, percentage, refundAmount); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrAlreadyReleased
			}
			return nil, err
		}
		// The capture credited the full payout to pending; take it back.
		if _, err := txBalanceRepo.DebitPending(ctx, session.MentorID, payment.MentorPayout()); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInsufficientPendingBalance
			}
			return nil, err
		}
		refundStatus = models.RefundProcessed
	} else if payment.Status == models.PaymentPending {
		if _, err := txPaymentRepo.MarkFailed(ctx, payment.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	if _, err := txCancellationRepo.Create(
		ctx, sessionID, actorID, input.Reason, refundAmount, percentage, refundStatus,
	); err != nil {
		return nil, err
	}

	if _, err := txSlotRepo.Release(ctx, session.TimeSlotID); err != nil {
		return nil, err
	}

	updated, err := txSessionRepo.UpdateStatusIfCurrent(ctx, sessionID, session.Status, models.SessionCancelled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Printf("session %d cancelled by %d: refund %s (%s%%)", sessionID, actorID, refundAmount, percentage)
	return s.GetSession(ctx, actorID, role, updated.ID)
}

// StartSession moves a confirmed session to in-progress once the scheduled
// start has passed. Mentor-driven.
func (s *SessionService) StartSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != "mentor" || session.MentorID != actorID {
		return nil, ErrForbidden
	}
	if !session.Status.CanTransitionTo(models.SessionInProgress) {
		return nil, ErrInvalidStateTransition
	}
	if session.ScheduledStart.After(time.Now().UTC()) {
		return nil, ErrInvalidStateTransition
	}

	updated, err := s.sessionRepo.UpdateStatusIfCurrent(ctx, sessionID, session.Status, models.SessionInProgress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return s.GetSession(ctx, actorID, role, updated.ID)
}

// CompleteSession stamps completed_at and re-arms the release job so the
// holding period counts from actual completion rather than the scheduled end.
func (s *SessionService) CompleteSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.SessionDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txJobRepo := repository.NewReleaseJobRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != "mentor" || session.MentorID != actorID {
		return nil, ErrForbidden
	}
	if !session.Status.CanTransitionTo(models.SessionCompleted) {
		return nil, ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	if session.ScheduledEnd.After(now) {
		return nil, ErrInvalidStateTransition
	}

	updated, err := txSessionRepo.MarkCompleted(ctx, sessionID, session.Status, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if _, err := txJobRepo.Schedule(ctx, sessionID, now.Add(s.holdingPeriod)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, actorID, role, updated.ID)
}

func (s *SessionService) GetSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canActOnSession(role, actorID, session) {
		return nil, ErrForbidden
	}

	detail := &models.SessionDetail{Session: *session}
	payment, err := s.paymentRepo.GetBySessionID(ctx, sessionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Payment = payment
	}
	return detail, nil
}

func (s *SessionService) ListSessions(
	ctx context.Context,
	actorID int64,
	role string,
	filter repository.SessionListFilter,
) ([]models.SessionDetail, error) {
	sessions, err := s.sessionRepo.List(ctx, repository.SessionListFilter{
		ActorID:   actorID,
		Role:      role,
		Status:    filter.Status,
		Timeframe: filter.Timeframe,
	})
	if err != nil {
		return nil, err
	}

	sessionIDs := make([]int64, 0, len(sessions))
	for _, session := range sessions {
		sessionIDs = append(sessionIDs, session.ID)
	}

	paymentsBySession, err := s.paymentRepo.ListBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	details := make([]models.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		detail := models.SessionDetail{Session: session}
		if payment, ok := paymentsBySession[session.ID]; ok {
			paymentCopy := payment
			detail.Payment = &paymentCopy
		}
		details = append(details, detail)
	}
	return details, nil
}

func canActOnSession(role string, actorID int64, session *models.Session) bool {
	switch role {
	case "mentee":
		return session.MenteeID == actorID
	case "mentor":
		return session.MentorID == actorID
	case "admin":
		return true
	}
	return false
}
