package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
)

// PaymentService is the provider webhook boundary. The provider delivers
// webhooks at least once, so both paths are idempotent: a replay with the
// same transaction id is a no-op, a replay with a different one is a
// conflict.
type PaymentService struct {
	db            *pgxpool.Pool
	sessionRepo   *repository.SessionRepository
	paymentRepo   *repository.PaymentRepository
	slotRepo      *repository.TimeSlotRepository
	balanceRepo   *repository.MentorBalanceRepository
	jobRepo       *repository.ReleaseJobRepository
	holdingPeriod time.Duration
}

func NewPaymentService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	paymentRepo *repository.PaymentRepository,
	slotRepo *repository.TimeSlotRepository,
	balanceRepo *repository.MentorBalanceRepository,
	jobRepo *repository.ReleaseJobRepository,
	holdingPeriod time.Duration,
) *PaymentService {
	return &PaymentService{
		db:            db,
		sessionRepo:   sessionRepo,
		paymentRepo:   paymentRepo,
		slotRepo:      slotRepo,
		balanceRepo:   balanceRepo,
		jobRepo:       jobRepo,
		holdingPeriod: holdingPeriod,
	}
}

// ConfirmCapture handles the provider's "payment captured" webhook. In one
// transaction it captures the payment, confirms the session, credits the
// mentor's pending balance with the payout share and schedules the durable
// release job for scheduled end + holding period.
func (s *PaymentService) ConfirmCapture(
	ctx context.Context,
	sessionID int64,
	providerTransactionID string,
) (*models.Payment, error) {
	if providerTransactionID == "" {
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
	txBalanceRepo := repository.NewMentorBalanceRepository(tx)
	txJobRepo := repository.NewReleaseJobRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	payment, err := txPaymentRepo.GetBySessionIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentCaptured {
		// Webhook replay. Same transaction id means the work is already
		// done; a different one means two captures for one session.
		if payment.ProviderTransactionID != nil && *payment.ProviderTransactionID == providerTransactionID {
			return payment, nil
		}
		return nil, ErrTransactionConflict
	}
	if payment.Status != models.PaymentPending {
		return nil, ErrInvalidStateTransition
	}
	if !session.Status.CanTransitionTo(models.SessionConfirmed) {
		return nil, ErrInvalidStateTransition
	}

	releaseDate := session.ScheduledEnd.Add(s.holdingPeriod)
	captured, err := txPaymentRepo.MarkCaptured(ctx, payment.ID, providerTransactionID, releaseDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if _, err := txBalanceRepo.CreditPending(ctx, session.MentorID, captured.MentorPayout()); err != nil {
		return nil, err
	}

	if _, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx, sessionID, session.Status, models.SessionConfirmed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if _, err := txJobRepo.Schedule(ctx, sessionID, releaseDate); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Printf("payment %d captured for session %d, release due %s",
		captured.ID, sessionID, releaseDate.Format(time.RFC3339))
	return captured, nil
}

// ConfirmFailure handles the provider's "payment failed" webhook: the
// payment terminates, the pending session is cancelled and the slot goes
// back on the market. Replays are no-ops.
func (s *PaymentService) ConfirmFailure(ctx context.Context, sessionID int64) (*models.Payment, error) {
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

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	payment, err := txPaymentRepo.GetBySessionIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentFailed {
		return payment, nil
	}
	if payment.Status != models.PaymentPending {
		return nil, ErrInvalidStateTransition
	}

	failed, err := txPaymentRepo.MarkFailed(ctx, payment.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if session.Status == models.SessionPending {
		if _, err := txSessionRepo.UpdateStatusIfCurrent(
			ctx, sessionID, models.SessionPending, models.SessionCancelled,
		); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if _, err := txSlotRepo.Release(ctx, session.TimeSlotID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Printf("payment %d failed for session %d, slot released", failed.ID, sessionID)
	return failed, nil
}

func (s *PaymentService) GetBySession(ctx context.Context, sessionID int64) (*models.Payment, error) {
	return s.paymentRepo.GetBySessionID(ctx, sessionID)
}
