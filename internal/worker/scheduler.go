package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
)

const (
	claimBatchSize = 25

	// maxAttempts bounds retries of transient failures. A job still failing
	// after this many runs is marked failed for manual attention.
	maxAttempts = 8

	backoffBase = 30 * time.Second
	backoffCap  = 30 * time.Minute
)

// Backoff returns the delay before retry number attempts+1. It doubles per
// attempt from backoffBase up to backoffCap.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	delay := backoffBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= backoffCap {
			return backoffCap
		}
	}
	return delay
}

// Scheduler polls the release_jobs table and drives the worker. Claiming uses
// FOR UPDATE SKIP LOCKED inside a transaction, so running the scheduler in
// several processes divides the work instead of duplicating it.
type Scheduler struct {
	db         *pgxpool.Pool
	worker     *ReleaseWorker
	pollPeriod time.Duration
}

func NewScheduler(db *pgxpool.Pool, worker *ReleaseWorker, pollPeriod time.Duration) *Scheduler {
	return &Scheduler{
		db:         db,
		worker:     worker,
		pollPeriod: pollPeriod,
	}
}

// Run polls until the context is cancelled. An immediate first tick drains
// any backlog that accumulated while the process was down.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("release scheduler polling every %s", s.pollPeriod)

	ticker := time.NewTicker(s.pollPeriod)
	defer ticker.Stop()

	for {
		if err := s.tick(ctx); err != nil {
			log.Printf("release scheduler tick: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Println("release scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// tick claims one batch of due jobs and executes them. The claim transaction
// stays open across execution so the row locks keep other schedulers off the
// same jobs; the worker's own money transaction runs on a separate
// connection.
func (s *Scheduler) tick(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txJobRepo := repository.NewReleaseJobRepository(tx)

	jobs, err := txJobRepo.ClaimDue(ctx, claimBatchSize)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		s.runJob(ctx, txJobRepo, job)
	}

	return tx.Commit(ctx)
}

func (s *Scheduler) runJob(ctx context.Context, jobRepo *repository.ReleaseJobRepository, job models.ReleaseJob) {
	err := s.worker.Execute(ctx, job.SessionID)

	switch {
	case err == nil:
		if err := jobRepo.MarkCompleted(ctx, job.ID); err != nil {
			log.Printf("mark job %d completed: %v", job.ID, err)
		}
	case errors.Is(err, ErrDisputeActive):
		if err := jobRepo.MarkBlocked(ctx, job.ID, err.Error()); err != nil {
			log.Printf("mark job %d blocked: %v", job.ID, err)
		}
	case errors.Is(err, ErrIntegrity):
		log.Printf("release job %d for session %d failed integrity check: %v", job.ID, job.SessionID, err)
		if err := jobRepo.MarkFailed(ctx, job.ID, err.Error()); err != nil {
			log.Printf("mark job %d failed: %v", job.ID, err)
		}
	default:
		// Transient (connection drop, lock timeout). Retry with backoff
		// until the attempt budget runs out.
		if job.Attempts+1 >= maxAttempts {
			log.Printf("release job %d for session %d exhausted retries: %v", job.ID, job.SessionID, err)
			if err := jobRepo.MarkFailed(ctx, job.ID, err.Error()); err != nil {
				log.Printf("mark job %d failed: %v", job.ID, err)
			}
			return
		}
		nextRun := time.Now().UTC().Add(Backoff(job.Attempts))
		if err := jobRepo.Reschedule(ctx, job.ID, nextRun, err.Error()); err != nil {
			log.Printf("reschedule job %d: %v", job.ID, err)
		}
	}
}
