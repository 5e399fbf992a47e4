package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/models"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/notifier"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/policy"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/worker"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

const testHoldingPeriod = 72 * time.Hour

func TestEscrowBookCaptureReleaseFlow(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	env := newEscrowTestEnv(pool)

	menteeID := createEscrowAccount(t, ctx, pool, "mentee", "")
	mentorID := createEscrowAccount(t, ctx, pool, "mentor", "100")
	t.Cleanup(func() { cleanupEscrowUsers(t, ctx, pool, menteeID, mentorID) })

	start := time.Date(2031, 3, 15, 9, 0, 0, 0, time.UTC)
	slot := createEscrowSlot(t, ctx, pool, mentorID, start, models.SlotDurationLong)

	detail, err := env.sessions.BookSession(ctx, menteeID, BookSessionInput{TimeSlotID: slot.ID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if detail.Status != models.SessionPending {
		t.Fatalf("expected pending session, got %q", detail.Status)
	}
	if detail.Payment == nil || !detail.Payment.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected payment of 100, got %+v", detail.Payment)
	}

	payment, err := env.payments.ConfirmCapture(ctx, detail.ID, "txn_flow_1")
	if err != nil {
		t.Fatalf("ConfirmCapture: %v", err)
	}
	if payment.Status != models.PaymentCaptured {
		t.Fatalf("expected captured payment, got %q", payment.Status)
	}

	balance, err := env.balanceRepo.GetByMentorID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByMentorID: %v", err)
	}
	// 15% commission on 100 leaves 85 in escrow.
	if !balance.PendingBalance.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected pending balance 85, got %s", balance.PendingBalance)
	}
	if !balance.AvailableBalance.IsZero() {
		t.Fatalf("expected zero available balance, got %s", balance.AvailableBalance)
	}

	// The provider delivers webhooks at least once. A replay with the same
	// transaction id is a no-op and must not credit the escrow twice.
	replayed, err := env.payments.ConfirmCapture(ctx, detail.ID, "txn_flow_1")
	if err != nil {
		t.Fatalf("ConfirmCapture replay: %v", err)
	}
	if replayed.Status != models.PaymentCaptured {
		t.Fatalf("expected captured payment on replay, got %q", replayed.Status)
	}
	balance, err = env.balanceRepo.GetByMentorID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByMentorID after replay: %v", err)
	}
	if !balance.PendingBalance.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected pending balance unchanged at 85, got %s", balance.PendingBalance)
	}

	// A second capture with a different transaction id is a conflict.
	if _, err := env.payments.ConfirmCapture(ctx, detail.ID, "txn_flow_other"); !errors.Is(err, ErrTransactionConflict) {
		t.Fatalf("expected ErrTransactionConflict, got %v", err)
	}

	if err := env.worker.Execute(ctx, detail.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	balance, err = env.balanceRepo.GetByMentorID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByMentorID after release: %v", err)
	}
	if !balance.AvailableBalance.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected available balance 85, got %s", balance.AvailableBalance)
	}
	if !balance.PendingBalance.IsZero() {
		t.Fatalf("expected zero pending balance, got %s", balance.PendingBalance)
	}

	// A replayed job must not pay twice.
	if err := env.worker.Execute(ctx, detail.ID); err != nil {
		t.Fatalf("Execute replay: %v", err)
	}
	balance, err = env.balanceRepo.GetByMentorID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByMentorID after replay: %v", err)
	}
	if !balance.AvailableBalance.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected available balance unchanged at 85, got %s", balance.AvailableBalance)
	}
}

func TestEscrowDisputeBlocksReleaseUntilResolved(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	env := newEscrowTestEnv(pool)

	menteeID := createEscrowAccount(t, ctx, pool, "mentee", "")
	mentorID := createEscrowAccount(t, ctx, pool, "mentor", "90")
	adminID := createEscrowAccount(t, ctx, pool, "admin", "")
	t.Cleanup(func() { cleanupEscrowUsers(t, ctx, pool, menteeID, mentorID, adminID) })

	start := time.Date(2031, 4, 1, 12, 0, 0, 0, time.UTC)
	slot := createEscrowSlot(t, ctx, pool, mentorID, start, models.SlotDurationLong)

	detail, err := env.sessions.BookSession(ctx, menteeID, BookSessionInput{TimeSlotID: slot.ID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := env.payments.ConfirmCapture(ctx, detail.ID, "txn_dispute_1"); err != nil {
		t.Fatalf("ConfirmCapture: %v", err)
	}

	dispute, err := env.disputes.OpenDispute(ctx, menteeID, detail.ID, OpenDisputeInput{
		Reason: "mentor never joined the call",
	})
	if err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}

	if err := env.worker.Execute(ctx, detail.ID); !errors.Is(err, worker.ErrDisputeActive) {
		t.Fatalf("expected ErrDisputeActive, got %v", err)
	}

	if _, err := env.disputes.ResolveDispute(ctx, adminID, dispute.ID, ResolveDisputeInput{
		Resolution: models.ResolutionReleaseToMentor,
	}); err != nil {
		t.Fatalf("ResolveDispute: %v", err)
	}

	if err := env.worker.Execute(ctx, detail.ID); err != nil {
		t.Fatalf("Execute after resolution: %v", err)
	}
	balance, err := env.balanceRepo.GetByMentorID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByMentorID: %v", err)
	}
	if !balance.AvailableBalance.Equal(detail.Payment.MentorPayout()) {
		t.Fatalf("expected available balance %s, got %s", detail.Payment.MentorPayout(), balance.AvailableBalance)
	}
}

func TestEscrowLateCancellationRefundsNothing(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	env := newEscrowTestEnv(pool)

	menteeID := createEscrowAccount(t, ctx, pool, "mentee", "")
	mentorID := createEscrowAccount(t, ctx, pool, "mentor", "80")
	t.Cleanup(func() { cleanupEscrowUsers(t, ctx, pool, menteeID, mentorID) })

	// Two hours of notice falls below every refund tier.
	start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	slot := createEscrowSlot(t, ctx, pool, mentorID, start, models.SlotDurationLong)

	detail, err := env.sessions.BookSession(ctx, menteeID, BookSessionInput{TimeSlotID: slot.ID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := env.payments.ConfirmCapture(ctx, detail.ID, "txn_cancel_1"); err != nil {
		t.Fatalf("ConfirmCapture: %v", err)
	}

	cancelled, err := env.sessions.CancelSession(ctx, menteeID, "mentee", detail.ID, CancelSessionInput{
		Reason: "something urgent came up at work",
	})
	if err != nil {
		t.Fatalf("CancelSession: %v", err)
	}
	if cancelled.Status != models.SessionCancelled {
		t.Fatalf("expected cancelled session, got %q", cancelled.Status)
	}
	if cancelled.Payment == nil || !cancelled.Payment.RefundAmount.IsZero() {
		t.Fatalf("expected zero refund, got %+v", cancelled.Payment)
	}

	// The escrow never reaches the mentor either way.
	balance, err := env.balanceRepo.GetByMentorID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByMentorID: %v", err)
	}
	if !balance.PendingBalance.IsZero() || !balance.AvailableBalance.IsZero() {
		t.Fatalf("expected empty balance, got %+v", balance)
	}

	// The slot goes back on the market.
	freedSlot, err := env.slotRepo.GetByID(ctx, slot.ID)
	if err != nil {
		t.Fatalf("GetByID slot: %v", err)
	}
	if freedSlot.IsBooked {
		t.Fatal("expected slot to be released after cancellation")
	}

	// The stale release job self-neutralizes.
	if err := env.worker.Execute(ctx, detail.ID); err != nil {
		t.Fatalf("Execute on refunded payment: %v", err)
	}
}

func TestEscrowApprovedRescheduleKeepsPaymentIntact(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	env := newEscrowTestEnv(pool)

	menteeID := createEscrowAccount(t, ctx, pool, "mentee", "")
	mentorID := createEscrowAccount(t, ctx, pool, "mentor", "110")
	t.Cleanup(func() { cleanupEscrowUsers(t, ctx, pool, menteeID, mentorID) })

	oldStart := time.Date(2031, 6, 1, 9, 0, 0, 0, time.UTC)
	newStart := time.Date(2031, 6, 8, 9, 0, 0, 0, time.UTC)
	oldSlot := createEscrowSlot(t, ctx, pool, mentorID, oldStart, models.SlotDurationShort)
	newSlot := createEscrowSlot(t, ctx, pool, mentorID, newStart, models.SlotDurationShort)

	detail, err := env.sessions.BookSession(ctx, menteeID, BookSessionInput{TimeSlotID: oldSlot.ID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := env.payments.ConfirmCapture(ctx, detail.ID, "txn_resched_1"); err != nil {
		t.Fatalf("ConfirmCapture: %v", err)
	}

	if _, err := env.reschedules.RequestReschedule(ctx, menteeID, "mentee", detail.ID, RequestRescheduleInput{
		NewTimeSlotID: newSlot.ID,
		Reason:        "conflict with a work deadline",
	}); err != nil {
		t.Fatalf("RequestReschedule: %v", err)
	}

	moved, err := env.reschedules.ApproveReschedule(ctx, mentorID, "mentor", detail.ID)
	if err != nil {
		t.Fatalf("ApproveReschedule: %v", err)
	}
	if moved.Status != models.SessionConfirmed {
		t.Fatalf("expected confirmed session, got %q", moved.Status)
	}
	if !moved.ScheduledStart.Equal(newStart) {
		t.Fatalf("expected start %s, got %s", newStart, moved.ScheduledStart)
	}

	// The money in escrow follows the session untouched.
	if moved.Payment == nil || moved.Payment.Status != models.PaymentCaptured {
		t.Fatalf("expected captured payment after reschedule, got %+v", moved.Payment)
	}
	if !moved.Payment.Amount.Equal(detail.Payment.Amount) {
		t.Fatalf("expected amount %s, got %s", detail.Payment.Amount, moved.Payment.Amount)
	}

	freedSlot, err := env.slotRepo.GetByID(ctx, oldSlot.ID)
	if err != nil {
		t.Fatalf("GetByID old slot: %v", err)
	}
	if freedSlot.IsBooked {
		t.Fatal("expected old slot to be released")
	}

	job, err := env.jobRepo.GetByKey(ctx, models.ReleaseJobKey(detail.ID))
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	wantDue := newStart.Add(30 * time.Minute).Add(testHoldingPeriod)
	if !job.DueAt.Equal(wantDue) {
		t.Fatalf("expected release job due %s, got %s", wantDue, job.DueAt)
	}
}

func TestEscrowPayoutLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	env := newEscrowTestEnv(pool)

	menteeID := createEscrowAccount(t, ctx, pool, "mentee", "")
	mentorID := createEscrowAccount(t, ctx, pool, "mentor", "100")
	t.Cleanup(func() { cleanupEscrowUsers(t, ctx, pool, menteeID, mentorID) })

	start := time.Date(2031, 9, 2, 10, 0, 0, 0, time.UTC)
	slot := createEscrowSlot(t, ctx, pool, mentorID, start, models.SlotDurationLong)

	detail, err := env.sessions.BookSession(ctx, menteeID, BookSessionInput{TimeSlotID: slot.ID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := env.payments.ConfirmCapture(ctx, detail.ID, "txn_payout_1"); err != nil {
		t.Fatalf("ConfirmCapture: %v", err)
	}
	if err := env.worker.Execute(ctx, detail.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Escrowed funds alone cannot be withdrawn; 85 is all there is.
	if _, err := env.payouts.RequestPayout(ctx, mentorID, decimal.RequireFromString("85.01")); !errors.Is(err, ErrInsufficientAvailableBalance) {
		t.Fatalf("expected ErrInsufficientAvailableBalance, got %v", err)
	}

	payout, err := env.payouts.RequestPayout(ctx, mentorID, decimal.RequireFromString("50"))
	if err != nil {
		t.Fatalf("RequestPayout: %v", err)
	}
	balance, err := env.balanceRepo.GetByMentorID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByMentorID: %v", err)
	}
	if !balance.AvailableBalance.Equal(decimal.RequireFromString("35")) {
		t.Fatalf("expected available balance 35 after payout request, got %s", balance.AvailableBalance)
	}
	// A payout moves money out of the wallet, not out of the earnings record.
	if !balance.TotalEarnings.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected total earnings 85, got %s", balance.TotalEarnings)
	}

	if _, err := env.payouts.MarkProcessing(ctx, payout.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	failed, err := env.payouts.MarkFailed(ctx, payout.ID, "bank rejected the transfer")
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if failed.Status != models.PayoutFailed {
		t.Fatalf("expected failed payout, got %q", failed.Status)
	}

	// A failed payout puts the money straight back.
	balance, err = env.balanceRepo.GetByMentorID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByMentorID after failure: %v", err)
	}
	if !balance.AvailableBalance.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected available balance restored to 85, got %s", balance.AvailableBalance)
	}
	if !balance.TotalEarnings.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected total earnings unchanged at 85, got %s", balance.TotalEarnings)
	}
	if balance.AvailableBalance.Add(balance.PendingBalance).GreaterThan(balance.TotalEarnings) {
		t.Fatalf("available %s + pending %s exceeds total earnings %s",
			balance.AvailableBalance, balance.PendingBalance, balance.TotalEarnings)
	}
}

func TestEscrowBalanceInvariantsUnderRandomSequences(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	env := newEscrowTestEnv(pool)

	menteeID := createEscrowAccount(t, ctx, pool, "mentee", "")
	mentorID := createEscrowAccount(t, ctx, pool, "mentor", "60")
	t.Cleanup(func() { cleanupEscrowUsers(t, ctx, pool, menteeID, mentorID) })

	rng := rand.New(rand.NewSource(1847))
	base := time.Date(2033, 1, 4, 8, 0, 0, 0, time.UTC)

	type trackedSession struct {
		id   int64
		open bool
	}
	var tracked []*trackedSession
	pickOpen := func() *trackedSession {
		open := make([]*trackedSession, 0, len(tracked))
		for _, s := range tracked {
			if s.open {
				open = append(open, s)
			}
		}
		if len(open) == 0 {
			return nil
		}
		return open[rng.Intn(len(open))]
	}

	prevTotal := decimal.Zero
	checkInvariants := func(step string) {
		t.Helper()
		balance, err := env.payouts.GetBalance(ctx, mentorID)
		if err != nil {
			t.Fatalf("GetBalance after %s: %v", step, err)
		}
		if balance.AvailableBalance.IsNegative() {
			t.Fatalf("available balance went negative after %s: %s", step, balance.AvailableBalance)
		}
		if balance.PendingBalance.IsNegative() {
			t.Fatalf("pending balance went negative after %s: %s", step, balance.PendingBalance)
		}
		if balance.AvailableBalance.Add(balance.PendingBalance).GreaterThan(balance.TotalEarnings) {
			t.Fatalf("after %s: available %s + pending %s exceeds total earnings %s",
				step, balance.AvailableBalance, balance.PendingBalance, balance.TotalEarnings)
		}
		if balance.TotalEarnings.LessThan(prevTotal) {
			t.Fatalf("total earnings shrank after %s: %s -> %s", step, prevTotal, balance.TotalEarnings)
		}
		prevTotal = balance.TotalEarnings
	}

	slotIdx := 0
	for i := 0; i < 40; i++ {
		switch rng.Intn(4) {
		case 0:
			slot := createEscrowSlot(t, ctx, pool, mentorID,
				base.Add(time.Duration(slotIdx)*2*time.Hour), models.SlotDurationLong)
			slotIdx++
			detail, err := env.sessions.BookSession(ctx, menteeID, BookSessionInput{TimeSlotID: slot.ID})
			if err != nil {
				t.Fatalf("BookSession: %v", err)
			}
			if _, err := env.payments.ConfirmCapture(ctx, detail.ID, fmt.Sprintf("txn_seq_%d", i)); err != nil {
				t.Fatalf("ConfirmCapture: %v", err)
			}
			tracked = append(tracked, &trackedSession{id: detail.ID, open: true})
			checkInvariants("capture")
		case 1:
			s := pickOpen()
			if s == nil {
				continue
			}
			if _, err := env.sessions.CancelSession(ctx, menteeID, "mentee", s.id, CancelSessionInput{
				Reason: "plans changed, cannot make the session",
			}); err != nil {
				t.Fatalf("CancelSession: %v", err)
			}
			s.open = false
			checkInvariants("cancel")
		case 2:
			s := pickOpen()
			if s == nil {
				continue
			}
			if err := env.worker.Execute(ctx, s.id); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			s.open = false
			checkInvariants("release")
		case 3:
			amount := decimal.NewFromInt(int64(rng.Intn(80) + 1))
			if _, err := env.payouts.RequestPayout(ctx, mentorID, amount); err != nil && !errors.Is(err, ErrInsufficientAvailableBalance) {
				t.Fatalf("RequestPayout: %v", err)
			}
			checkInvariants("payout")
		}
	}
}

func TestEscrowReleaseFailsOnMissingSession(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	env := newEscrowTestEnv(pool)

	if err := env.worker.Execute(ctx, 987654321); !errors.Is(err, worker.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for missing session, got %v", err)
	}
}

func TestEscrowRefundResolutionRequiresCapturedPayment(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	env := newEscrowTestEnv(pool)

	menteeID := createEscrowAccount(t, ctx, pool, "mentee", "")
	mentorID := createEscrowAccount(t, ctx, pool, "mentor", "70")
	adminID := createEscrowAccount(t, ctx, pool, "admin", "")
	t.Cleanup(func() { cleanupEscrowUsers(t, ctx, pool, menteeID, mentorID, adminID) })

	start := time.Date(2031, 10, 6, 14, 0, 0, 0, time.UTC)
	slot := createEscrowSlot(t, ctx, pool, mentorID, start, models.SlotDurationLong)

	// Booked but never captured: the payment is still pending.
	detail, err := env.sessions.BookSession(ctx, menteeID, BookSessionInput{TimeSlotID: slot.ID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}

	dispute, err := env.disputes.OpenDispute(ctx, menteeID, detail.ID, OpenDisputeInput{
		Reason: "charged but the booking never confirmed",
	})
	if err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}

	if _, err := env.disputes.ResolveDispute(ctx, adminID, dispute.ID, ResolveDisputeInput{
		Resolution:   models.ResolutionRefundMentee,
		RefundAmount: decimal.RequireFromString("70"),
	}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}

	payment, err := env.payments.GetBySession(ctx, detail.ID)
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if payment.Status != models.PaymentPending || payment.IsRefunded {
		t.Fatalf("expected untouched pending payment, got %+v", payment)
	}
}

type escrowTestEnv struct {
	sessions    *SessionService
	payments    *PaymentService
	reschedules *RescheduleService
	disputes    *DisputeService
	payouts     *PayoutService
	worker      *worker.ReleaseWorker
	balanceRepo *repository.MentorBalanceRepository
	slotRepo    *repository.TimeSlotRepository
	jobRepo     *repository.ReleaseJobRepository
}

func newEscrowTestEnv(pool *pgxpool.Pool) *escrowTestEnv {
	sessionRepo := repository.NewSessionRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	slotRepo := repository.NewTimeSlotRepository(pool)
	balanceRepo := repository.NewMentorBalanceRepository(pool)
	disputeRepo := repository.NewDisputeRepository(pool)
	rescheduleRepo := repository.NewRescheduleRepository(pool)
	payoutRepo := repository.NewPayoutRepository(pool)
	jobRepo := repository.NewReleaseJobRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	mentorProfileRepo := repository.NewMentorProfileRepository(pool)
	hub := notifier.NewHub()

	commission := decimal.RequireFromString("0.15")
	return &escrowTestEnv{
		sessions: NewSessionService(
			pool, sessionRepo, paymentRepo, slotRepo, jobRepo, userRepo, mentorProfileRepo,
			policy.DefaultRefundPolicy(), commission, testHoldingPeriod,
		),
		payments: NewPaymentService(
			pool, sessionRepo, paymentRepo, slotRepo, balanceRepo, jobRepo, testHoldingPeriod,
		),
		reschedules: NewRescheduleService(
			pool, sessionRepo, slotRepo, rescheduleRepo, paymentRepo, jobRepo,
			24*time.Hour, testHoldingPeriod,
		),
		disputes: NewDisputeService(
			pool, disputeRepo, sessionRepo, paymentRepo, balanceRepo, jobRepo,
		),
		payouts:     NewPayoutService(pool, payoutRepo, balanceRepo, hub),
		worker:      worker.NewReleaseWorker(pool, sessionRepo, disputeRepo, hub),
		balanceRepo: balanceRepo,
		slotRepo:    slotRepo,
		jobRepo:     jobRepo,
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func createEscrowAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role, hourlyRate string) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("escrow-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}

	if role == "mentor" {
		mentorProfileRepo := repository.NewMentorProfileRepository(pool)
		if err := mentorProfileRepo.CreateEmpty(ctx, user.ID); err != nil {
			t.Fatalf("CreateEmpty mentor profile: %v", err)
		}
		if _, err := mentorProfileRepo.UpdateRate(
			ctx, user.ID, "Test Mentor", decimal.RequireFromString(hourlyRate),
		); err != nil {
			t.Fatalf("UpdateRate mentor profile: %v", err)
		}
	}

	return user.ID
}

func createEscrowSlot(
	t *testing.T,
	ctx context.Context,
	pool *pgxpool.Pool,
	mentorID int64,
	start time.Time,
	durationMinutes int,
) *models.TimeSlot {
	t.Helper()

	slot, err := repository.NewTimeSlotRepository(pool).Create(ctx, mentorID, start, durationMinutes)
	if err != nil {
		t.Fatalf("Create slot: %v", err)
	}
	return slot
}

func cleanupEscrowUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	statements := []string{
		`DELETE FROM release_jobs WHERE session_id IN (SELECT id FROM sessions WHERE mentee_id = ANY($1) OR mentor_id = ANY($1))`,
		`DELETE FROM session_disputes WHERE session_id IN (SELECT id FROM sessions WHERE mentee_id = ANY($1) OR mentor_id = ANY($1))`,
		`DELETE FROM session_reschedules WHERE session_id IN (SELECT id FROM sessions WHERE mentee_id = ANY($1) OR mentor_id = ANY($1))`,
		`DELETE FROM session_cancellations WHERE session_id IN (SELECT id FROM sessions WHERE mentee_id = ANY($1) OR mentor_id = ANY($1))`,
		`DELETE FROM payments WHERE mentee_id = ANY($1) OR mentor_id = ANY($1)`,
		`DELETE FROM sessions WHERE mentee_id = ANY($1) OR mentor_id = ANY($1)`,
		`DELETE FROM time_slots WHERE mentor_id = ANY($1)`,
		`DELETE FROM payouts WHERE mentor_id = ANY($1)`,
		`DELETE FROM mentor_balances WHERE mentor_id = ANY($1)`,
		`DELETE FROM mentor_profiles WHERE user_id = ANY($1)`,
		`DELETE FROM users WHERE id = ANY($1)`,
	}
	for _, statement := range statements {
		if _, err := pool.Exec(ctx, statement, userIDs); err != nil {
			t.Fatalf("cleanup: %v", err)
		}
	}
}
