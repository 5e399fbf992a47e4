package repository

import (
	"context"
	"time"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
)

const jobColumns = `id, job_key, session_id, due_at, status, attempts, next_run_at,
		last_error, created_at, updated_at`

// ReleaseJobRepository is the durable job queue. Jobs are keyed by session so
// scheduling is an upsert: moving a session (reschedule, completion, dispute
// resolution) re-arms the one existing job instead of creating a second.
type ReleaseJobRepository struct {
	db DBTX
}

func NewReleaseJobRepository(db DBTX) *ReleaseJobRepository {
	return &ReleaseJobRepository{db: db}
}

func scanJob(row interface{ Scan(dest ...any) error }) (*models.ReleaseJob, error) {
	var job models.ReleaseJob
	err := row.Scan(
		&job.ID,
		&job.JobKey,
		&job.SessionID,
		&job.DueAt,
		&job.Status,
		&job.Attempts,
		&job.NextRunAt,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Schedule upserts the release job for a session at dueAt. Re-scheduling
// resets attempts and clears any blocked/failed state: the caller has decided
// the job should run again.
func (r *ReleaseJobRepository) Schedule(
	ctx context.Context,
	sessionID int64,
	dueAt time.Time,
) (*models.ReleaseJob, error) {
	query := `
		INSERT INTO release_jobs (job_key, session_id, due_at, status, attempts, next_run_at)
		VALUES ($1, $2, $3, 'pending', 0, $3)
		ON CONFLICT (job_key) DO UPDATE
		SET due_at = EXCLUDED.due_at, status = 'pending', attempts = 0,
			next_run_at = EXCLUDED.due_at, last_error = NULL, updated_at = NOW()
		RETURNING ` + jobColumns
	return scanJob(r.db.QueryRow(ctx, query, models.ReleaseJobKey(sessionID), sessionID, dueAt))
}

func (r *ReleaseJobRepository) GetByKey(ctx context.Context, jobKey string) (*models.ReleaseJob, error) {
	query := `SELECT ` + jobColumns + ` FROM release_jobs WHERE job_key = $1`
	return scanJob(r.db.QueryRow(ctx, query, jobKey))
}

// ClaimDue locks and returns up to limit runnable jobs. SKIP LOCKED lets
// several scheduler processes poll the same table without handing the same
// job to two workers.
func (r *ReleaseJobRepository) ClaimDue(ctx context.Context, limit int) ([]models.ReleaseJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM release_jobs
		WHERE status = 'pending' AND next_run_at <= NOW()
		ORDER BY next_run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]models.ReleaseJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *ReleaseJobRepository) MarkCompleted(ctx context.Context, jobID int64) error {
	query := `
		UPDATE release_jobs
		SET status = 'completed', last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, jobID)
	return err
}

// MarkBlocked parks the job while a dispute is open. Only an explicit
// re-schedule (dispute resolution) makes it runnable again.
func (r *ReleaseJobRepository) MarkBlocked(ctx context.Context, jobID int64, reason string) error {
	query := `
		UPDATE release_jobs
		SET status = 'blocked', last_error = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, jobID, reason)
	return err
}

// MarkFailed records an integrity failure. No retry: these need a human.
func (r *ReleaseJobRepository) MarkFailed(ctx context.Context, jobID int64, cause string) error {
	query := `
		UPDATE release_jobs
		SET status = 'failed', attempts = attempts + 1, last_error = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, jobID, cause)
	return err
}

// Reschedule pushes a transiently failed job to nextRunAt with the attempt
// counted; the scheduler computes the backoff.
func (r *ReleaseJobRepository) Reschedule(
	ctx context.Context,
	jobID int64,
	nextRunAt time.Time,
	cause string,
) error {
	query := `
		UPDATE release_jobs
		SET attempts = attempts + 1, next_run_at = $2, last_error = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, jobID, nextRunAt, cause)
	return err
}
