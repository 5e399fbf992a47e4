package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
)

// DisputeService is the dispute guard. An unresolved dispute is the one
// thing that stops the release worker; resolution is the manual-resume
// point that either refunds the mentee or re-arms the release job.
type DisputeService struct {
	db          *pgxpool.Pool
	disputeRepo *repository.DisputeRepository
	sessionRepo *repository.SessionRepository
	paymentRepo *repository.PaymentRepository
	balanceRepo *repository.MentorBalanceRepository
	jobRepo     *repository.ReleaseJobRepository
}

func NewDisputeService(
	db *pgxpool.Pool,
	disputeRepo *repository.DisputeRepository,
	sessionRepo *repository.SessionRepository,
	paymentRepo *repository.PaymentRepository,
	balanceRepo *repository.MentorBalanceRepository,
	jobRepo *repository.ReleaseJobRepository,
) *DisputeService {
	return &DisputeService{
		db:          db,
		disputeRepo: disputeRepo,
		sessionRepo: sessionRepo,
		paymentRepo: paymentRepo,
		balanceRepo: balanceRepo,
		jobRepo:     jobRepo,
	}
}

func (s *DisputeService) HasActiveDispute(ctx context.Context, sessionID int64) (bool, error) {
	return s.disputeRepo.HasActiveDispute(ctx, sessionID)
}

type OpenDisputeInput struct {
	Reason      string
	Description *string
}

// OpenDispute records a mentee's dispute. The partial unique index keeps one
// unresolved dispute per session; the release worker checks for it before
// every transfer, so no job bookkeeping is needed here.
func (s *DisputeService) OpenDispute(
	ctx context.Context,
	menteeID int64,
	sessionID int64,
	input OpenDisputeInput,
) (*models.SessionDispute, error) {
	if input.Reason == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.MenteeID != menteeID {
		return nil, ErrForbidden
	}

	dispute, err := s.disputeRepo.Create(ctx, sessionID, menteeID, input.Reason, input.Description)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateDispute
		}
		return nil, err
	}

	log.Printf("dispute %d opened on session %d: release is now blocked", dispute.ID, sessionID)
	return dispute, nil
}

func (s *DisputeService) MarkUnderReview(ctx context.Context, disputeID int64) (*models.SessionDispute, error) {
	dispute, err := s.disputeRepo.MarkUnderReview(ctx, disputeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return dispute, nil
}

type ResolveDisputeInput struct {
	Resolution   models.DisputeResolution
	RefundAmount decimal.Decimal
	AdminNotes   *string
}

// ResolveDispute closes the dispute exactly once. A refund resolution takes
// the money out of escrow through the payment-refund path; any other
// resolution re-schedules the release job due immediately so the blocked
// transfer goes through.
func (s *DisputeService) ResolveDispute(
	ctx context.Context,
	adminID int64,
	disputeID int64,
	input ResolveDisputeInput,
) (*models.SessionDispute, error) {
	if !input.Resolution.Valid() {
		return nil, ErrInvalidInput
	}
	if input.Resolution == models.ResolutionRefundMentee && !input.RefundAmount.IsPositive() {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txDisputeRepo := repository.NewDisputeRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txBalanceRepo := repository.NewMentorBalanceRepository(tx)
	txJobRepo := repository.NewReleaseJobRepository(tx)

	dispute, err := txDisputeRepo.GetByIDForUpdate(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !dispute.Status.IsActive() {
		return nil, ErrInvalidStateTransition
	}

	refundAmount := decimal.Zero
	if input.Resolution == models.ResolutionRefundMentee {
		payment, err := txPaymentRepo.GetBySessionIDForUpdate(ctx, dispute.SessionID)
		if err != nil {
			return nil, err
		}
		if payment.IsReleasedToMentor {
			return nil, ErrAlreadyReleased
		}
		// A payment that never reached capture holds no money to give back.
		if payment.Status != models.PaymentCaptured {
			return nil, ErrInvalidStateTransition
		}
		if input.RefundAmount.GreaterThan(payment.Amount) {
			return nil, ErrInvalidInput
		}

		refundAmount = input.RefundAmount
		percentage := refundAmount.
			Div(payment.Amount).
			Mul(decimal.NewFromInt(100)).
			Round(2)
		if _, err := txPaymentRepo.ApplyRefund(ctx, payment.ID, percentage, refundAmount); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrAlreadyReleased
			}
			return nil, err
		}
		if _, err := txBalanceRepo.DebitPending(ctx, payment.MentorID, payment.MentorPayout()); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInsufficientPendingBalance
			}
			return nil, err
		}
	}

	resolved, err := txDisputeRepo.Resolve(
		ctx, disputeID, input.Resolution, refundAmount, input.AdminNotes, adminID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if input.Resolution != models.ResolutionRefundMentee {
		// The dispute was the only thing holding the transfer back.
		if _, err := txJobRepo.Schedule(ctx, dispute.SessionID, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Printf("dispute %d resolved as %s (refund %s)", disputeID, input.Resolution, refundAmount)
	return resolved, nil
}

func (s *DisputeService) ListBySession(ctx context.Context, sessionID int64) ([]models.SessionDispute, error) {
	return s.disputeRepo.ListBySession(ctx, sessionID)
}
