package repository

import (
	"context"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/shopspring/decimal"
)

const payoutColumns = `id, mentor_id, reference, amount, status, failure_reason,
		processed_at, created_at, updated_at`

type PayoutRepository struct {
	db DBTX
}

func NewPayoutRepository(db DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func scanPayout(row interface{ Scan(dest ...any) error }) (*models.Payout, error) {
	var payout models.Payout
	err := row.Scan(
		&payout.ID,
		&payout.MentorID,
		&payout.Reference,
		&payout.Amount,
		&payout.Status,
		&payout.FailureReason,
		&payout.ProcessedAt,
		&payout.CreatedAt,
		&payout.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) Create(
	ctx context.Context,
	mentorID int64,
	reference string,
	amount decimal.Decimal,
) (*models.Payout, error) {
	query := `
		INSERT INTO payouts (mentor_id, reference, amount, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING ` + payoutColumns
	return scanPayout(r.db.QueryRow(ctx, query, mentorID, reference, amount))
}

func (r *PayoutRepository) GetByID(ctx context.Context, payoutID int64) (*models.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id = $1`
	return scanPayout(r.db.QueryRow(ctx, query, payoutID))
}

func (r *PayoutRepository) GetByIDForUpdate(ctx context.Context, payoutID int64) (*models.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id = $1 FOR UPDATE`
	return scanPayout(r.db.QueryRow(ctx, query, payoutID))
}

// UpdateStatusIfCurrent is the payout lifecycle compare-and-swap.
func (r *PayoutRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	payoutID int64,
	currentStatus models.PayoutStatus,
	nextStatus models.PayoutStatus,
	failureReason *string,
) (*models.Payout, error) {
	query := `
		UPDATE payouts
		SET status = $3, failure_reason = $4,
			processed_at = CASE WHEN $3 IN ('completed', 'failed') THEN NOW() ELSE processed_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + payoutColumns
	return scanPayout(r.db.QueryRow(ctx, query, payoutID, currentStatus, nextStatus, failureReason))
}

func (r *PayoutRepository) ListByMentor(ctx context.Context, mentorID int64) ([]models.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE mentor_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := make([]models.Payout, 0)
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *payout)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payouts, nil
}
