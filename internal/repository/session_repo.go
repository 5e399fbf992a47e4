package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/shopspring/decimal"
)

const sessionColumns = `id, mentee_id, mentor_id, time_slot_id, duration_min, scheduled_start,
		scheduled_end, status, price, topic, notes, video_link, completed_at, created_at, updated_at`

type CreateSessionInput struct {
	MenteeID        int64
	MentorID        int64
	TimeSlotID      int64
	DurationMinutes int
	ScheduledStart  time.Time
	ScheduledEnd    time.Time
	Price           decimal.Decimal
	Topic           *string
	Notes           *string
}

type SessionListFilter struct {
	ActorID   int64
	Role      string
	Status    string
	Timeframe string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row interface{ Scan(dest ...any) error }) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.MenteeID,
		&session.MentorID,
		&session.TimeSlotID,
		&session.DurationMinutes,
		&session.ScheduledStart,
		&session.ScheduledEnd,
		&session.Status,
		&session.Price,
		&session.Topic,
		&session.Notes,
		&session.VideoLink,
		&session.CompletedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := `
		INSERT INTO sessions (mentee_id, mentor_id, time_slot_id, duration_min,
			scheduled_start, scheduled_end, status, price, topic, notes)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $9)
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.MenteeID,
		input.MentorID,
		input.TimeSlotID,
		input.DurationMinutes,
		input.ScheduledStart,
		input.ScheduledEnd,
		input.Price,
		input.Topic,
		input.Notes,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) GetByIDForUpdate(
	ctx context.Context,
	sessionID int64,
) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// UpdateStatusIfCurrent is a compare-and-swap on the status column; it scans
// no row when another writer got there first.
func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID int64,
	currentStatus models.SessionStatus,
	nextStatus models.SessionStatus,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, nextStatus))
}

// MarkCompleted stamps completed_at along with the status change.
func (r *SessionRepository) MarkCompleted(
	ctx context.Context,
	sessionID int64,
	currentStatus models.SessionStatus,
	completedAt time.Time,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'completed', completed_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND completed_at IS NULL
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, completedAt))
}

// UpdateSchedule rewrites the session's slot and times on an approved
// reschedule.
func (r *SessionRepository) UpdateSchedule(
	ctx context.Context,
	sessionID int64,
	timeSlotID int64,
	scheduledStart time.Time,
	scheduledEnd time.Time,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET time_slot_id = $2, scheduled_start = $3, scheduled_end = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, timeSlotID, scheduledStart, scheduledEnd))
}

func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.Session, error) {
	actorColumn := "mentee_id"
	if filter.Role == "mentor" {
		actorColumn = "mentor_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "scheduled_end > NOW()")
	case "past":
		whereParts = append(whereParts, "scheduled_end <= NOW()")
	}

	query := fmt.Sprintf(`
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE %s
		ORDER BY scheduled_start ASC, id ASC
	`, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
