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
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/notifier"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
)

type eventPublisher interface {
	Publish(event notifier.BalanceEvent)
}

// PayoutService handles mentor withdrawals. A payout only ever draws from the
// available balance; escrowed pending funds cannot be withdrawn.
type PayoutService struct {
	db          *pgxpool.Pool
	payoutRepo  *repository.PayoutRepository
	balanceRepo *repository.MentorBalanceRepository
	publisher   eventPublisher
}

func NewPayoutService(
	db *pgxpool.Pool,
	payoutRepo *repository.PayoutRepository,
	balanceRepo *repository.MentorBalanceRepository,
	publisher eventPublisher,
) *PayoutService {
	return &PayoutService{
		db:          db,
		payoutRepo:  payoutRepo,
		balanceRepo: balanceRepo,
		publisher:   publisher,
	}
}

// RequestPayout debits the available balance and opens the payout record in
// one transaction. The guarded debit scans no row when the balance is short,
// so the payout is never created against funds that are not there.
func (s *PayoutService) RequestPayout(
	ctx context.Context,
	mentorID int64,
	amount decimal.Decimal,
) (*models.Payout, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPayoutRepo := repository.NewPayoutRepository(tx)
	txBalanceRepo := repository.NewMentorBalanceRepository(tx)

	if _, err := txBalanceRepo.GetByMentorIDForUpdate(ctx, mentorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientAvailableBalance
		}
		return nil, err
	}
	if _, err := txBalanceRepo.DebitForPayout(ctx, mentorID, amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientAvailableBalance
		}
		return nil, err
	}

	payout, err := txPayoutRepo.Create(ctx, mentorID, uuid.NewString(), amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publisher.Publish(notifier.BalanceEvent{
		Type:       notifier.EventPayoutRequested,
		MentorID:   mentorID,
		PayoutID:   payout.ID,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	})
	log.Printf("payout %d requested by mentor %d for %s", payout.ID, mentorID, amount)
	return payout, nil
}

func (s *PayoutService) MarkProcessing(ctx context.Context, payoutID int64) (*models.Payout, error) {
	payout, err := s.payoutRepo.UpdateStatusIfCurrent(
		ctx, payoutID, models.PayoutPending, models.PayoutProcessing, nil,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return payout, nil
}

func (s *PayoutService) MarkCompleted(ctx context.Context, payoutID int64) (*models.Payout, error) {
	payout, err := s.payoutRepo.UpdateStatusIfCurrent(
		ctx, payoutID, models.PayoutProcessing, models.PayoutCompleted, nil,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return payout, nil
}

// MarkFailed terminates the payout and returns the debited funds to the
// available balance.
func (s *PayoutService) MarkFailed(ctx context.Context, payoutID int64, reason string) (*models.Payout, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPayoutRepo := repository.NewPayoutRepository(tx)
	txBalanceRepo := repository.NewMentorBalanceRepository(tx)

	current, err := txPayoutRepo.GetByIDForUpdate(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(models.PayoutFailed) {
		return nil, ErrInvalidStateTransition
	}

	payout, err := txPayoutRepo.UpdateStatusIfCurrent(
		ctx, payoutID, current.Status, models.PayoutFailed, &reason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	if _, err := txBalanceRepo.CreditAvailable(ctx, payout.MentorID, payout.Amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publisher.Publish(notifier.BalanceEvent{
		Type:       notifier.EventPayoutFailed,
		MentorID:   payout.MentorID,
		PayoutID:   payout.ID,
		Amount:     payout.Amount,
		OccurredAt: time.Now().UTC(),
	})
	return payout, nil
}

// CancelPayout lets a mentor withdraw a payout that has not started
// processing. The funds go straight back to the available balance.
func (s *PayoutService) CancelPayout(ctx context.Context, mentorID, payoutID int64) (*models.Payout, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPayoutRepo := repository.NewPayoutRepository(tx)
	txBalanceRepo := repository.NewMentorBalanceRepository(tx)

	current, err := txPayoutRepo.GetByIDForUpdate(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if current.MentorID != mentorID {
		return nil, ErrForbidden
	}

	payout, err := txPayoutRepo.UpdateStatusIfCurrent(
		ctx, payoutID, models.PayoutPending, models.PayoutCancelled, nil,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	if _, err := txBalanceRepo.CreditAvailable(ctx, mentorID, payout.Amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return payout, nil
}

// GetBalance returns the mentor's ledger row, or a zero-value balance for a
// mentor who has never had a captured payment.
func (s *PayoutService) GetBalance(ctx context.Context, mentorID int64) (*models.MentorBalance, error) {
	balance, err := s.balanceRepo.GetByMentorID(ctx, mentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.MentorBalance{
				MentorID:         mentorID,
				AvailableBalance: decimal.Zero,
				PendingBalance:   decimal.Zero,
				TotalEarnings:    decimal.Zero,
				UpdatedAt:        time.Now().UTC(),
			}, nil
		}
		return nil, err
	}
	return balance, nil
}

func (s *PayoutService) ListPayouts(ctx context.Context, mentorID int64) ([]models.Payout, error) {
	return s.payoutRepo.ListByMentor(ctx, mentorID)
}
