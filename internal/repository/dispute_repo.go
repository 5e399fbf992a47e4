package repository

import (
	"context"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/shopspring/decimal"
)

const disputeColumns = `id, session_id, opened_by_id, reason, description, status, resolution,
		refund_amount, admin_notes, resolved_by_id, resolved_at, created_at, updated_at`

type DisputeRepository struct {
	db DBTX
}

func NewDisputeRepository(db DBTX) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func scanDispute(row interface{ Scan(dest ...any) error }) (*models.SessionDispute, error) {
	var dispute models.SessionDispute
	err := row.Scan(
		&dispute.ID,
		&dispute.SessionID,
		&dispute.OpenedByID,
		&dispute.Reason,
		&dispute.Description,
		&dispute.Status,
		&dispute.Resolution,
		&dispute.RefundAmount,
		&dispute.AdminNotes,
		&dispute.ResolvedByID,
		&dispute.ResolvedAt,
		&dispute.CreatedAt,
		&dispute.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// Create opens a dispute. A partial unique index on session_id over active
// statuses rejects a second unresolved dispute for the same session; callers
// map the violation to a duplicate-dispute conflict.
func (r *DisputeRepository) Create(
	ctx context.Context,
	sessionID int64,
	openedByID int64,
	reason string,
	description *string,
) (*models.SessionDispute, error) {
	query := `
		INSERT INTO session_disputes (session_id, opened_by_id, reason, description, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING ` + disputeColumns
	return scanDispute(r.db.QueryRow(ctx, query, sessionID, openedByID, reason, description))
}

func (r *DisputeRepository) GetByID(ctx context.Context, disputeID int64) (*models.SessionDispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM session_disputes WHERE id = $1`
	return scanDispute(r.db.QueryRow(ctx, query, disputeID))
}

func (r *DisputeRepository) GetByIDForUpdate(ctx context.Context, disputeID int64) (*models.SessionDispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM session_disputes WHERE id = $1 FOR UPDATE`
	return scanDispute(r.db.QueryRow(ctx, query, disputeID))
}

// HasActiveDispute is the release worker's gate: any unresolved dispute for
// the session blocks the transfer.
func (r *DisputeRepository) HasActiveDispute(ctx context.Context, sessionID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM session_disputes
			WHERE session_id = $1
			  AND status IN ('pending', 'under_review')
		)
	`
	var active bool
	if err := r.db.QueryRow(ctx, query, sessionID).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

func (r *DisputeRepository) MarkUnderReview(ctx context.Context, disputeID int64) (*models.SessionDispute, error) {
	query := `
		UPDATE session_disputes
		SET status = 'under_review', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + disputeColumns
	return scanDispute(r.db.QueryRow(ctx, query, disputeID))
}

// Resolve is terminal: the status guard means a dispute resolves exactly once.
func (r *DisputeRepository) Resolve(
	ctx context.Context,
	disputeID int64,
	resolution models.DisputeResolution,
	refundAmount decimal.Decimal,
	adminNotes *string,
	resolvedByID int64,
) (*models.SessionDispute, error) {
	query := `
		UPDATE session_disputes
		SET status = 'resolved', resolution = $2, refund_amount = $3, admin_notes = $4,
			resolved_by_id = $5, resolved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'under_review')
		RETURNING ` + disputeColumns
	return scanDispute(r.db.QueryRow(ctx, query, disputeID, resolution, refundAmount, adminNotes, resolvedByID))
}

func (r *DisputeRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.SessionDispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM session_disputes WHERE session_id = $1 ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	disputes := make([]models.SessionDispute, 0)
	for rows.Next() {
		dispute, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, *dispute)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return disputes, nil
}
