package repository

import (
	"context"
	"time"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
)

const rescheduleColumns = `id, session_id, requested_by_id, original_start, new_start,
		new_time_slot_id, reason, status, resolved_at, created_at`

type RescheduleRepository struct {
	db DBTX
}

func NewRescheduleRepository(db DBTX) *RescheduleRepository {
	return &RescheduleRepository{db: db}
}

func scanReschedule(row interface{ Scan(dest ...any) error }) (*models.SessionReschedule, error) {
	var reschedule models.SessionReschedule
	err := row.Scan(
		&reschedule.ID,
		&reschedule.SessionID,
		&reschedule.RequestedByID,
		&reschedule.OriginalStart,
		&reschedule.NewStart,
		&reschedule.NewTimeSlotID,
		&reschedule.Reason,
		&reschedule.Status,
		&reschedule.ResolvedAt,
		&reschedule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reschedule, nil
}

// Create opens the in-flight reschedule record. A partial unique index on
// session_id over status = 'pending' keeps it to one active request per
// session.
func (r *RescheduleRepository) Create(
	ctx context.Context,
	sessionID int64,
	requestedByID int64,
	originalStart time.Time,
	newStart time.Time,
	newTimeSlotID *int64,
	reason string,
) (*models.SessionReschedule, error) {
	query := `
		INSERT INTO session_reschedules (session_id, requested_by_id, original_start,
			new_start, new_time_slot_id, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING ` + rescheduleColumns
	return scanReschedule(r.db.QueryRow(
		ctx, query, sessionID, requestedByID, originalStart, newStart, newTimeSlotID, reason,
	))
}

func (r *RescheduleRepository) GetByID(ctx context.Context, rescheduleID int64) (*models.SessionReschedule, error) {
	query := `SELECT ` + rescheduleColumns + ` FROM session_reschedules WHERE id = $1`
	return scanReschedule(r.db.QueryRow(ctx, query, rescheduleID))
}

func (r *RescheduleRepository) GetPendingBySessionForUpdate(
	ctx context.Context,
	sessionID int64,
) (*models.SessionReschedule, error) {
	query := `
		SELECT ` + rescheduleColumns + `
		FROM session_reschedules
		WHERE session_id = $1 AND status = 'pending'
		FOR UPDATE
	`
	return scanReschedule(r.db.QueryRow(ctx, query, sessionID))
}

// Resolve moves the record to a terminal status exactly once.
func (r *RescheduleRepository) Resolve(
	ctx context.Context,
	rescheduleID int64,
	status models.RescheduleStatus,
) (*models.SessionReschedule, error) {
	query := `
		UPDATE session_reschedules
		SET status = $2, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + rescheduleColumns
	return scanReschedule(r.db.QueryRow(ctx, query, rescheduleID, status))
}
