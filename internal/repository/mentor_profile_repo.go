package repository

import (
	"context"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/shopspring/decimal"
)

type MentorProfileRepository struct {
	db DBTX
}

func NewMentorProfileRepository(db DBTX) *MentorProfileRepository {
	return &MentorProfileRepository{db: db}
}

func (r *MentorProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO mentor_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *MentorProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.MentorProfile, error) {
	query := `
		SELECT user_id, full_name, hourly_rate, created_at, updated_at
		FROM mentor_profiles
		WHERE user_id = $1
	`
	var profile models.MentorProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.FullName,
		&profile.HourlyRate,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *MentorProfileRepository) UpdateRate(
	ctx context.Context,
	userID int64,
	fullName string,
	hourlyRate decimal.Decimal,
) (*models.MentorProfile, error) {
	query := `
		UPDATE mentor_profiles
		SET full_name = $2, hourly_rate = $3, updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, full_name, hourly_rate, created_at, updated_at
	`
	var profile models.MentorProfile
	err := r.db.QueryRow(ctx, query, userID, fullName, hourlyRate).Scan(
		&profile.UserID,
		&profile.FullName,
		&profile.HourlyRate,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
