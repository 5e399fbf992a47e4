package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
)

// SlotService manages a mentor's availability slots.
type SlotService struct {
	db       *pgxpool.Pool
	slotRepo *repository.TimeSlotRepository
}

func NewSlotService(db *pgxpool.Pool, slotRepo *repository.TimeSlotRepository) *SlotService {
	return &SlotService{db: db, slotRepo: slotRepo}
}

type CreateSlotInput struct {
	StartTime       time.Time
	DurationMinutes int
}

// CreateSlot validates and inserts a new availability slot. The advisory lock
// serializes slot creation per mentor so two concurrent inserts cannot both
// pass the overlap check.
func (s *SlotService) CreateSlot(
	ctx context.Context,
	mentorID int64,
	input CreateSlotInput,
) (*models.TimeSlot, error) {
	if !models.ValidSlotDuration(input.DurationMinutes) {
		return nil, ErrInvalidInput
	}
	if !input.StartTime.After(time.Now().UTC()) {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", mentorID); err != nil {
		return nil, err
	}

	txSlotRepo := repository.NewTimeSlotRepository(tx)
	overlaps, err := txSlotRepo.HasOverlap(ctx, mentorID, input.StartTime.UTC(), input.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if overlaps {
		return nil, ErrSlotUnavailable
	}

	slot, err := txSlotRepo.Create(ctx, mentorID, input.StartTime.UTC(), input.DurationMinutes)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *SlotService) ListSlots(
	ctx context.Context,
	mentorID int64,
	onlyAvailable bool,
) ([]models.TimeSlot, error) {
	return s.slotRepo.ListByMentor(ctx, mentorID, onlyAvailable)
}
