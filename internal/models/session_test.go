package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatusTransitions(t *testing.T) {
	cases := []struct {
		from    SessionStatus
		to      SessionStatus
		allowed bool
	}{
		{SessionPending, SessionConfirmed, true},
		{SessionPending, SessionCancelled, true},
		{SessionPending, SessionCompleted, false},
		{SessionPending, SessionInProgress, false},
		{SessionConfirmed, SessionInProgress, true},
		{SessionConfirmed, SessionCompleted, true},
		{SessionConfirmed, SessionCancelled, true},
		{SessionConfirmed, SessionPendingReschedule, true},
		{SessionConfirmed, SessionPending, false},
		{SessionInProgress, SessionCompleted, true},
		{SessionInProgress, SessionCancelled, false},
		{SessionPendingReschedule, SessionConfirmed, true},
		{SessionPendingReschedule, SessionCancelled, true},
		{SessionPendingReschedule, SessionCompleted, false},
		{SessionCompleted, SessionCancelled, false},
		{SessionCancelled, SessionConfirmed, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equalf(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatusesAllowNothing(t *testing.T) {
	all := []SessionStatus{
		SessionPending, SessionConfirmed, SessionInProgress,
		SessionPendingReschedule, SessionCompleted, SessionCancelled,
	}
	for _, terminal := range []SessionStatus{SessionCompleted, SessionCancelled} {
		assert.True(t, terminal.IsTerminal())
		for _, next := range all {
			assert.Falsef(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}
}

func TestCanCancel(t *testing.T) {
	s := &Session{Status: SessionConfirmed}
	assert.True(t, s.CanCancel())

	s.Status = SessionPending
	assert.True(t, s.CanCancel())

	done := time.Now()
	s.CompletedAt = &done
	assert.False(t, s.CanCancel())

	s = &Session{Status: SessionCompleted}
	assert.False(t, s.CanCancel())
}

func TestCanRescheduleRespectsLeadTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lead := 24 * time.Hour

	s := &Session{Status: SessionConfirmed, ScheduledStart: now.Add(25 * time.Hour)}
	assert.True(t, s.CanReschedule(now, lead))

	s.ScheduledStart = now.Add(24 * time.Hour)
	assert.False(t, s.CanReschedule(now, lead), "exactly at the cutoff is too late")

	s.ScheduledStart = now.Add(48 * time.Hour)
	s.Status = SessionPending
	assert.False(t, s.CanReschedule(now, lead), "only confirmed sessions reschedule")
}
