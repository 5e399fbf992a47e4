package repository

import (
	"context"
	"time"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
)

const timeSlotColumns = `id, mentor_id, start_time, duration_min, is_booked, session_id, created_at, updated_at`

type TimeSlotRepository struct {
	db DBTX
}

func NewTimeSlotRepository(db DBTX) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

func scanTimeSlot(row interface{ Scan(dest ...any) error }) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	err := row.Scan(
		&slot.ID,
		&slot.MentorID,
		&slot.StartTime,
		&slot.DurationMinutes,
		&slot.IsBooked,
		&slot.SessionID,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *TimeSlotRepository) Create(
	ctx context.Context,
	mentorID int64,
	startTime time.Time,
	durationMinutes int,
) (*models.TimeSlot, error) {
	query := `
		INSERT INTO time_slots (mentor_id, start_time, duration_min)
		VALUES ($1, $2, $3)
		RETURNING ` + timeSlotColumns
	return scanTimeSlot(r.db.QueryRow(ctx, query, mentorID, startTime, durationMinutes))
}

func (r *TimeSlotRepository) GetByID(ctx context.Context, slotID int64) (*models.TimeSlot, error) {
	query := `SELECT ` + timeSlotColumns + ` FROM time_slots WHERE id = $1`
	return scanTimeSlot(r.db.QueryRow(ctx, query, slotID))
}

func (r *TimeSlotRepository) GetByIDForUpdate(ctx context.Context, slotID int64) (*models.TimeSlot, error) {
	query := `SELECT ` + timeSlotColumns + ` FROM time_slots WHERE id = $1 FOR UPDATE`
	return scanTimeSlot(r.db.QueryRow(ctx, query, slotID))
}

// MarkBooked claims the slot for a session. The is_booked guard makes the
// claim first-writer-wins: a concurrent booking of the same slot scans no row.
func (r *TimeSlotRepository) MarkBooked(
	ctx context.Context,
	slotID int64,
	sessionID int64,
) (*models.TimeSlot, error) {
	query := `
		UPDATE time_slots
		SET is_booked = TRUE, session_id = $2, updated_at = NOW()
		WHERE id = $1 AND is_booked = FALSE
		RETURNING ` + timeSlotColumns
	return scanTimeSlot(r.db.QueryRow(ctx, query, slotID, sessionID))
}

// Release frees the slot so it can be rebooked.
func (r *TimeSlotRepository) Release(ctx context.Context, slotID int64) (*models.TimeSlot, error) {
	query := `
		UPDATE time_slots
		SET is_booked = FALSE, session_id = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + timeSlotColumns
	return scanTimeSlot(r.db.QueryRow(ctx, query, slotID))
}

func (r *TimeSlotRepository) HasOverlap(
	ctx context.Context,
	mentorID int64,
	startTime time.Time,
	durationMinutes int,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM time_slots
			WHERE mentor_id = $1
			  AND start_time < ($2::timestamptz + ($3::int * INTERVAL '1 minute'))
			  AND (start_time + (duration_min * INTERVAL '1 minute')) > $2::timestamptz
		)
	`
	var overlaps bool
	if err := r.db.QueryRow(ctx, query, mentorID, startTime, durationMinutes).Scan(&overlaps); err != nil {
		return false, err
	}
	return overlaps, nil
}

func (r *TimeSlotRepository) ListByMentor(
	ctx context.Context,
	mentorID int64,
	onlyAvailable bool,
) ([]models.TimeSlot, error) {
	query := `
		SELECT ` + timeSlotColumns + `
		FROM time_slots
		WHERE mentor_id = $1
		  AND ($2 = FALSE OR (is_booked = FALSE AND start_time > NOW()))
		ORDER BY start_time ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, mentorID, onlyAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]models.TimeSlot, 0)
	for rows.Next() {
		slot, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}
