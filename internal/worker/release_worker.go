// Package worker runs the deferred escrow release. The schedule lives in the
// release_jobs table, so a restart loses nothing; the worker itself is
// stateless and safe to run from several processes at once.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/notifier"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
)

var (
	// ErrDisputeActive stops a release while a dispute is unresolved. The
	// scheduler parks the job as blocked; dispute resolution re-arms it.
	ErrDisputeActive = errors.New("active dispute blocks release")

	// ErrIntegrity marks a state the release flow should never produce, such
	// as a missing payment row or a pending balance short of the transfer.
	// Jobs failing with it are not retried.
	ErrIntegrity = errors.New("escrow integrity violation")
)

type eventPublisher interface {
	Publish(event notifier.BalanceEvent)
}

// ReleaseWorker moves one session's escrow from the mentor's pending balance
// to the available balance once the holding period has passed.
type ReleaseWorker struct {
	db          *pgxpool.Pool
	sessionRepo *repository.SessionRepository
	disputeRepo *repository.DisputeRepository
	publisher   eventPublisher
}

func NewReleaseWorker(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	disputeRepo *repository.DisputeRepository,
	publisher eventPublisher,
) *ReleaseWorker {
	return &ReleaseWorker{
		db:          db,
		sessionRepo: sessionRepo,
		disputeRepo: disputeRepo,
		publisher:   publisher,
	}
}

// Execute releases the escrow for one session. It is idempotent: a payment
// already released, refunded or never captured is a clean no-op, so a job
// replay or a duplicate scheduler cannot double-pay. The transfer and the
// released flag commit in one transaction.
func (w *ReleaseWorker) Execute(ctx context.Context, sessionID int64) error {
	active, err := w.disputeRepo.HasActiveDispute(ctx, sessionID)
	if err != nil {
		return err
	}
	if active {
		session, err := w.sessionRepo.GetByID(ctx, sessionID)
		if err == nil {
			w.publisher.Publish(notifier.BalanceEvent{
				Type:       notifier.EventReleaseBlocked,
				MentorID:   session.MentorID,
				SessionID:  sessionID,
				OccurredAt: time.Now().UTC(),
			})
		}
		return ErrDisputeActive
	}

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txBalanceRepo := repository.NewMentorBalanceRepository(tx)

	session, err := txSessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: release job points at missing session %d", ErrIntegrity, sessionID)
		}
		return err
	}

	payment, err := txPaymentRepo.GetBySessionIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: session %d has a release job but no payment", ErrIntegrity, sessionID)
		}
		return err
	}

	if payment.IsReleasedToMentor {
		return nil
	}
	// A refund or failure after scheduling neutralizes the job: there is
	// nothing left in escrow to move.
	if payment.IsRefunded || payment.Status != models.PaymentCaptured {
		log.Printf("release job for session %d is moot, payment status %s", sessionID, payment.Status)
		return nil
	}

	transfer := payment.MentorPayout()

	balance, err := txBalanceRepo.GetByMentorIDForUpdate(ctx, session.MentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: mentor %d has no balance row for session %d", ErrIntegrity, session.MentorID, sessionID)
		}
		return err
	}
	if balance.PendingBalance.LessThan(transfer) {
		return fmt.Errorf("%w: mentor %d pending balance %s is short of transfer %s",
			ErrIntegrity, session.MentorID, balance.PendingBalance, transfer)
	}

	if _, err := txBalanceRepo.ReleaseToAvailable(ctx, session.MentorID, transfer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: concurrent drain of mentor %d pending balance", ErrIntegrity, session.MentorID)
		}
		return err
	}
	if _, err := txPaymentRepo.MarkReleased(ctx, payment.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a race with another release of the same payment. The lock
			// ordering should prevent this, so treat it as corruption.
			return fmt.Errorf("%w: payment %d released underneath us", ErrIntegrity, payment.ID)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	w.publisher.Publish(notifier.BalanceEvent{
		Type:       notifier.EventPaymentReleased,
		MentorID:   session.MentorID,
		SessionID:  sessionID,
		Amount:     transfer,
		OccurredAt: time.Now().UTC(),
	})
	log.Printf("released %s to mentor %d for session %d", transfer, session.MentorID, sessionID)
	return nil
}
