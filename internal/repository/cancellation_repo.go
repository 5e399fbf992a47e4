package repository

import (
	"context"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/shopspring/decimal"
)

const cancellationColumns = `id, session_id, cancelled_by_id, reason, refund_amount,
		refund_percentage, refund_status, created_at`

type CancellationRepository struct {
	db DBTX
}

func NewCancellationRepository(db DBTX) *CancellationRepository {
	return &CancellationRepository{db: db}
}

func scanCancellation(row interface{ Scan(dest ...any) error }) (*models.SessionCancellation, error) {
	var cancellation models.SessionCancellation
	err := row.Scan(
		&cancellation.ID,
		&cancellation.SessionID,
		&cancellation.CancelledByID,
		&cancellation.Reason,
		&cancellation.RefundAmount,
		&cancellation.RefundPercentage,
		&cancellation.RefundStatus,
		&cancellation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cancellation, nil
}

func (r *CancellationRepository) Create(
	ctx context.Context,
	sessionID int64,
	cancelledByID int64,
	reason string,
	refundAmount decimal.Decimal,
	refundPercentage decimal.Decimal,
	refundStatus models.RefundStatus,
) (*models.SessionCancellation, error) {
	query := `
		INSERT INTO session_cancellations (session_id, cancelled_by_id, reason,
			refund_amount, refund_percentage, refund_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + cancellationColumns
	return scanCancellation(r.db.QueryRow(
		ctx, query, sessionID, cancelledByID, reason, refundAmount, refundPercentage, refundStatus,
	))
}

func (r *CancellationRepository) GetBySessionID(ctx context.Context, sessionID int64) (*models.SessionCancellation, error) {
	query := `SELECT ` + cancellationColumns + ` FROM session_cancellations WHERE session_id = $1`
	return scanCancellation(r.db.QueryRow(ctx, query, sessionID))
}
