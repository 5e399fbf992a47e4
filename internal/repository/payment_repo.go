package repository

import (
	"context"
	"time"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, session_id, mentee_id, mentor_id, provider, provider_intent_id,
		provider_transaction_id, amount, platform_commission, status, is_refunded, refund_amount,
		refund_percentage, refund_status, refunded_at, payment_release_date, is_released_to_mentor,
		released_at, created_at`

type CreatePaymentInput struct {
	SessionID          int64
	MenteeID           int64
	MentorID           int64
	Provider           string
	ProviderIntentID   *string
	Amount             decimal.Decimal
	PlatformCommission decimal.Decimal
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row interface{ Scan(dest ...any) error }) (*models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.MenteeID,
		&payment.MentorID,
		&payment.Provider,
		&payment.ProviderIntentID,
		&payment.ProviderTransactionID,
		&payment.Amount,
		&payment.PlatformCommission,
		&payment.Status,
		&payment.IsRefunded,
		&payment.RefundAmount,
		&payment.RefundPercentage,
		&payment.RefundStatus,
		&payment.RefundedAt,
		&payment.PaymentReleaseDate,
		&payment.IsReleasedToMentor,
		&payment.ReleasedAt,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Create inserts the escrow record for a session. The unique index on
// session_id rejects a second payment; callers map the violation to a
// duplicate-payment conflict.
func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (session_id, mentee_id, mentor_id, provider, provider_intent_id,
			amount, platform_commission, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.MenteeID,
		input.MentorID,
		input.Provider,
		input.ProviderIntentID,
		input.Amount,
		input.PlatformCommission,
	))
}

func (r *PaymentRepository) GetBySessionID(ctx context.Context, sessionID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, sessionID))
}

func (r *PaymentRepository) GetBySessionIDForUpdate(ctx context.Context, sessionID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = $1 FOR UPDATE`
	return scanPayment(r.db.QueryRow(ctx, query, sessionID))
}

func (r *PaymentRepository) ListBySessionIDs(ctx context.Context, sessionIDs []int64) (map[int64]models.Payment, error) {
	payments := make(map[int64]models.Payment, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return payments, nil
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = ANY($1)`
	rows, err := r.db.Query(ctx, query, sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments[payment.SessionID] = *payment
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// MarkCaptured records the provider capture. The status guard keeps it a
// compare-and-swap: a payment already captured (or failed) scans no row.
func (r *PaymentRepository) MarkCaptured(
	ctx context.Context,
	paymentID int64,
	providerTransactionID string,
	releaseDate time.Time,
) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = 'captured', provider_transaction_id = $2, payment_release_date = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query, paymentID, providerTransactionID, releaseDate))
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID int64) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = 'failed'
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query, paymentID))
}

// ApplyRefund records a refund. Only a captured payment holds money to give
// back, and the is_released_to_mentor guard enforces the core escrow rule:
// money that already left escrow cannot come back.
func (r *PaymentRepository) ApplyRefund(
	ctx context.Context,
	paymentID int64,
	percentage decimal.Decimal,
	amount decimal.Decimal,
) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = 'refunded', is_refunded = TRUE, refund_amount = $3,
			refund_percentage = $2, refund_status = 'processed', refunded_at = NOW()
		WHERE id = $1 AND status = 'captured'
			AND is_released_to_mentor = FALSE AND is_refunded = FALSE
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query, paymentID, percentage, amount))
}

// MarkReleased flips is_released_to_mentor exactly once. A second call scans
// no row, which callers surface as an already-released conflict. This is the
// idempotency guard the release worker leans on.
func (r *PaymentRepository) MarkReleased(ctx context.Context, paymentID int64) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET is_released_to_mentor = TRUE, released_at = NOW()
		WHERE id = $1 AND is_released_to_mentor = FALSE
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query, paymentID))
}
