package models

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	// JobPending jobs are picked up by the scheduler once NextRunAt passes.
	JobPending JobStatus = "pending"
	// JobCompleted jobs ran to success and are never touched again.
	JobCompleted JobStatus = "completed"
	// JobBlocked jobs were stopped by an active dispute. The scheduler skips
	// them; only dispute resolution re-arms the job.
	JobBlocked JobStatus = "blocked"
	// JobFailed jobs hit an integrity error. Manual investigation required.
	JobFailed JobStatus = "failed"
)

// ReleaseJob is the durable schedule entry for moving one session's escrow
// from pending to available. One job per session, keyed by session id, so a
// re-schedule (reschedule flow, session completion, dispute resolution) is an
// upsert rather than a second job.
type ReleaseJob struct {
	ID        int64      `json:"id"`
	JobKey    string     `json:"job_key"`
	SessionID int64      `json:"session_id"`
	DueAt     time.Time  `json:"due_at"`
	Status    JobStatus  `json:"status"`
	Attempts  int        `json:"attempts"`
	NextRunAt time.Time  `json:"next_run_at"`
	LastError *string    `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ReleaseJobKey derives the deduplication key for a session's release job.
func ReleaseJobKey(sessionID int64) string {
	return fmt.Sprintf("release-session-%d", sessionID)
}
