package repository

import (
	"context"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/shopspring/decimal"
)

const balanceColumns = `mentor_id, available_balance, pending_balance, total_earnings, updated_at`

// MentorBalanceRepository mutates balances only through guarded SQL deltas.
// There is deliberately no generic "set balance" method: read-modify-write
// from application code would race when two sessions of the same mentor
// release concurrently.
type MentorBalanceRepository struct {
	db DBTX
}

func NewMentorBalanceRepository(db DBTX) *MentorBalanceRepository {
	return &MentorBalanceRepository{db: db}
}

func scanBalance(row interface{ Scan(dest ...any) error }) (*models.MentorBalance, error) {
	var balance models.MentorBalance
	err := row.Scan(
		&balance.MentorID,
		&balance.AvailableBalance,
		&balance.PendingBalance,
		&balance.TotalEarnings,
		&balance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *MentorBalanceRepository) GetByMentorID(ctx context.Context, mentorID int64) (*models.MentorBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM mentor_balances WHERE mentor_id = $1`
	return scanBalance(r.db.QueryRow(ctx, query, mentorID))
}

func (r *MentorBalanceRepository) GetByMentorIDForUpdate(ctx context.Context, mentorID int64) (*models.MentorBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM mentor_balances WHERE mentor_id = $1 FOR UPDATE`
	return scanBalance(r.db.QueryRow(ctx, query, mentorID))
}

// CreditPending adds newly captured escrow to the mentor's pending balance
// and total earnings. The upsert creates the balance row lazily on a mentor's
// first captured payment.
func (r *MentorBalanceRepository) CreditPending(
	ctx context.Context,
	mentorID int64,
	amount decimal.Decimal,
) (*models.MentorBalance, error) {
	query := `
		INSERT INTO mentor_balances (mentor_id, available_balance, pending_balance, total_earnings)
		VALUES ($1, 0, $2, $2)
		ON CONFLICT (mentor_id) DO UPDATE
		SET pending_balance = mentor_balances.pending_balance + EXCLUDED.pending_balance,
			total_earnings = mentor_balances.total_earnings + EXCLUDED.total_earnings,
			updated_at = NOW()
		RETURNING ` + balanceColumns
	return scanBalance(r.db.QueryRow(ctx, query, mentorID, amount))
}

// DebitPending takes escrow back out of the pending balance (refund before
// release). Total earnings stay put: they are a lifetime high-water mark and
// never decrease.
func (r *MentorBalanceRepository) DebitPending(
	ctx context.Context,
	mentorID int64,
	amount decimal.Decimal,
) (*models.MentorBalance, error) {
	query := `
		UPDATE mentor_balances
		SET pending_balance = pending_balance - $2,
			updated_at = NOW()
		WHERE mentor_id = $1 AND pending_balance >= $2
		RETURNING ` + balanceColumns
	return scanBalance(r.db.QueryRow(ctx, query, mentorID, amount))
}

// ReleaseToAvailable moves amount from pending to available in one statement.
// The pending_balance guard means an insufficient balance scans no row rather
// than going negative.
func (r *MentorBalanceRepository) ReleaseToAvailable(
	ctx context.Context,
	mentorID int64,
	amount decimal.Decimal,
) (*models.MentorBalance, error) {
	query := `
		UPDATE mentor_balances
		SET pending_balance = pending_balance - $2,
			available_balance = available_balance + $2,
			updated_at = NOW()
		WHERE mentor_id = $1 AND pending_balance >= $2
		RETURNING ` + balanceColumns
	return scanBalance(r.db.QueryRow(ctx, query, mentorID, amount))
}

// DebitForPayout draws a withdrawal from the available balance only.
func (r *MentorBalanceRepository) DebitForPayout(
	ctx context.Context,
	mentorID int64,
	amount decimal.Decimal,
) (*models.MentorBalance, error) {
	query := `
		UPDATE mentor_balances
		SET available_balance = available_balance - $2,
			updated_at = NOW()
		WHERE mentor_id = $1 AND available_balance >= $2
		RETURNING ` + balanceColumns
	return scanBalance(r.db.QueryRow(ctx, query, mentorID, amount))
}

// CreditAvailable returns funds to the available balance when a payout fails.
func (r *MentorBalanceRepository) CreditAvailable(
	ctx context.Context,
	mentorID int64,
	amount decimal.Decimal,
) (*models.MentorBalance, error) {
	query := `
		UPDATE mentor_balances
		SET available_balance = available_balance + $2,
			updated_at = NOW()
		WHERE mentor_id = $1
		RETURNING ` + balanceColumns
	return scanBalance(r.db.QueryRow(ctx, query, mentorID, amount))
}
