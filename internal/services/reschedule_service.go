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

// RescheduleService coordinates the three-way state change across the
// session, both time slots and the in-flight reschedule record. The new slot
// is only claimed at approval time; a pending request holds no inventory.
type RescheduleService struct {
	db             *pgxpool.Pool
	sessionRepo    *repository.SessionRepository
	slotRepo       *repository.TimeSlotRepository
	rescheduleRepo *repository.RescheduleRepository
	paymentRepo    *repository.PaymentRepository
	jobRepo        *repository.ReleaseJobRepository
	leadTime       time.Duration
	holdingPeriod  time.Duration
}

func NewRescheduleService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	slotRepo *repository.TimeSlotRepository,
	rescheduleRepo *repository.RescheduleRepository,
	paymentRepo *repository.PaymentRepository,
	jobRepo *repository.ReleaseJobRepository,
	leadTime time.Duration,
	holdingPeriod time.Duration,
) *RescheduleService {
	return &RescheduleService{
		db:             db,
		sessionRepo:    sessionRepo,
		slotRepo:       slotRepo,
		rescheduleRepo: rescheduleRepo,
		paymentRepo:    paymentRepo,
		jobRepo:        jobRepo,
		leadTime:       leadTime,
		holdingPeriod:  holdingPeriod,
	}
}

type RequestRescheduleInput struct {
	NewTimeSlotID int64
	Reason        string
}

// RequestReschedule opens the in-flight record and parks the session in
// pending_reschedule. Only confirmed sessions with more than the lead time
// remaining qualify.
func (s *RescheduleService) RequestReschedule(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	input RequestRescheduleInput,
) (*models.SessionReschedule, error) {
	if input.NewTimeSlotID <= 0 || input.Reason == "" {
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
	txSlotRepo := repository.NewTimeSlotRepository(tx)
	txRescheduleRepo := repository.NewRescheduleRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canActOnSession(role, actorID, session) {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionConfirmed {
		return nil, ErrInvalidStateTransition
	}
	if !session.CanReschedule(time.Now().UTC(), s.leadTime) {
		return nil, ErrRescheduleTooLate
	}

	newSlot, err := txSlotRepo.GetByIDForUpdate(ctx, input.NewTimeSlotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	if newSlot.MentorID != session.MentorID ||
		newSlot.IsBooked ||
		!newSlot.StartTime.After(time.Now().UTC()) ||
		newSlot.DurationMinutes != session.DurationMinutes {
		return nil, ErrSlotUnavailable
	}

	newSlotID := newSlot.ID
	reschedule, err := txRescheduleRepo.Create(
		ctx, sessionID, actorID, session.ScheduledStart, newSlot.StartTime, &newSlotID, input.Reason,
	)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateReschedule
		}
		return nil, err
	}

	if _, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx, sessionID, models.SessionConfirmed, models.SessionPendingReschedule,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return reschedule, nil
}

// ApproveReschedule claims the new slot, frees the old one, rewrites the
// session schedule and resolves the in-flight record, all in one
// transaction. The payment is untouched: the money already in escrow simply
// follows the session to its new time, with the release job re-armed for the
// new end + holding period.
func (s *RescheduleService) ApproveReschedule(
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
	txSlotRepo := repository.NewTimeSlotRepository(tx)
	txRescheduleRepo := repository.NewRescheduleRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txJobRepo := repository.NewReleaseJobRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != "admin" && !(role == "mentor" && session.MentorID == actorID) {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionPendingReschedule {
		return nil, ErrInvalidStateTransition
	}

	reschedule, err := txRescheduleRepo.GetPendingBySessionForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	if reschedule.NewTimeSlotID == nil {
		return nil, ErrInvalidStateTransition
	}

	newSlot, err := txSlotRepo.GetByIDForUpdate(ctx, *reschedule.NewTimeSlotID)
	if err != nil {
		return nil, err
	}
	if newSlot.IsBooked || !newSlot.StartTime.After(time.Now().UTC()) {
		// The requested slot was taken while the request sat pending.
		// Resolve the record and put the session back; the mentee can
		// request again.
		if _, err := txRescheduleRepo.Resolve(ctx, reschedule.ID, models.RescheduleRejected); err != nil {
			return nil, err
		}
		if _, err := txSessionRepo.UpdateStatusIfCurrent(
			ctx, sessionID, models.SessionPendingReschedule, models.SessionConfirmed,
		); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return nil, ErrSlotUnavailable
	}

	if _, err := txSlotRepo.Release(ctx, session.TimeSlotID); err != nil {
		return nil, err
	}
	if _, err := txSlotRepo.MarkBooked(ctx, newSlot.ID, sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	newEnd := newSlot.EndTime().UTC()
	if _, err := txSessionRepo.UpdateSchedule(
		ctx, sessionID, newSlot.ID, newSlot.StartTime.UTC(), newEnd,
	); err != nil {
		return nil, err
	}

	if _, err := txRescheduleRepo.Resolve(ctx, reschedule.ID, models.RescheduleApproved); err != nil {
		return nil, err
	}

	updated, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx, sessionID, models.SessionPendingReschedule, models.SessionConfirmed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	// Re-arm the release job only when money is actually in escrow.
	payment, err := txPaymentRepo.GetBySessionID(ctx, sessionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil && payment.Status == models.PaymentCaptured && !payment.IsReleasedToMentor {
		if _, err := txJobRepo.Schedule(ctx, sessionID, newEnd.Add(s.holdingPeriod)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Printf("session %d rescheduled to %s", sessionID, updated.ScheduledStart.Format(time.RFC3339))
	detail := &models.SessionDetail{Session: *updated}
	if payment != nil {
		detail.Payment = payment
	}
	return detail, nil
}

// RejectReschedule resolves the in-flight record and returns the session to
// confirmed at its original time.
func (s *RescheduleService) RejectReschedule(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.SessionReschedule, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txRescheduleRepo := repository.NewRescheduleRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != "admin" && !(role == "mentor" && session.MentorID == actorID) {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionPendingReschedule {
		return nil, ErrInvalidStateTransition
	}

	reschedule, err := txRescheduleRepo.GetPendingBySessionForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	resolved, err := txRescheduleRepo.Resolve(ctx, reschedule.ID, models.RescheduleRejected)
	if err != nil {
		return nil, err
	}
	if _, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx, sessionID, models.SessionPendingReschedule, models.SessionConfirmed,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return resolved, nil
}
