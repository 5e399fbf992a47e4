package routes

import (
	"context"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/config"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/handlers"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/middleware"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/notifier"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/policy"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/repository"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/services"
	"github.com/Mohamed-Adel17/ITI-GraduationProject-CareerRoute-sub007/internal/worker"
)

// RegisterRoutes wires repositories, services and handlers and mounts the API.
// It also starts the notifier hub and the release scheduler; both stop when
// ctx is cancelled.
func RegisterRoutes(ctx context.Context, app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	mentorProfileRepo := repository.NewMentorProfileRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	balanceRepo := repository.NewMentorBalanceRepository(db)
	disputeRepo := repository.NewDisputeRepository(db)
	rescheduleRepo := repository.NewRescheduleRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	jobRepo := repository.NewReleaseJobRepository(db)

	hub := notifier.NewHub()
	go hub.Run()

	refundPolicy := policy.NewRefundPolicy([]policy.RefundTier{
		{MinLeadTime: cfg.RefundFullLeadTime, Percentage: decimal.NewFromInt(100)},
		{MinLeadTime: cfg.RefundPartialLead, Percentage: cfg.RefundPartialPct},
	})

	sessionService := services.NewSessionService(
		db, sessionRepo, paymentRepo, slotRepo, jobRepo, userRepo, mentorProfileRepo,
		refundPolicy, cfg.PlatformCommission, cfg.HoldingPeriod,
	)
	slotService := services.NewSlotService(db, slotRepo)
	paymentService := services.NewPaymentService(
		db, sessionRepo, paymentRepo, slotRepo, balanceRepo, jobRepo, cfg.HoldingPeriod,
	)
	rescheduleService := services.NewRescheduleService(
		db, sessionRepo, slotRepo, rescheduleRepo, paymentRepo, jobRepo,
		cfg.RescheduleLeadTime, cfg.HoldingPeriod,
	)
	disputeService := services.NewDisputeService(
		db, disputeRepo, sessionRepo, paymentRepo, balanceRepo, jobRepo,
	)
	payoutService := services.NewPayoutService(db, payoutRepo, balanceRepo, hub)

	releaseWorker := worker.NewReleaseWorker(db, sessionRepo, disputeRepo, hub)
	scheduler := worker.NewScheduler(db, releaseWorker, cfg.SchedulerPollPeriod)
	go scheduler.Run(ctx)

	authHandler := handlers.NewAuthHandler(db, userRepo, mentorProfileRepo, cfg.JWTSecret)
	slotHandler := handlers.NewSlotHandler(slotService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	webhookHandler := handlers.NewWebhookHandler(paymentService)
	rescheduleHandler := handlers.NewRescheduleHandler(rescheduleService)
	disputeHandler := handlers.NewDisputeHandler(disputeService)
	payoutHandler := handlers.NewPayoutHandler(payoutService)
	notificationHandler := handlers.NewNotificationHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	// Provider webhooks are machine-to-machine; no bearer token.
	webhooks := api.Group("/webhooks/payments")
	webhooks.Post("/captured", webhookHandler.PaymentCaptured)
	webhooks.Post("/failed", webhookHandler.PaymentFailed)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	mentors := authProtected.Group("/mentors")
	mentors.Put("/profile", authHandler.UpdateRate)
	mentors.Post("/slots", slotHandler.CreateSlot)
	mentors.Get("/:mentorId/slots", slotHandler.ListMentorSlots)
	mentors.Get("/balance", payoutHandler.GetBalance)

	sessions := authProtected.Group("/sessions")
	sessions.Post("/book", sessionHandler.BookSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Post("/:id/cancel", sessionHandler.CancelSession)
	sessions.Post("/:id/start", sessionHandler.StartSession)
	sessions.Post("/:id/complete", sessionHandler.CompleteSession)
	sessions.Post("/:id/reschedule", rescheduleHandler.RequestReschedule)
	sessions.Post("/:id/reschedule/approve", rescheduleHandler.ApproveReschedule)
	sessions.Post("/:id/reschedule/reject", rescheduleHandler.RejectReschedule)
	sessions.Post("/:id/disputes", disputeHandler.OpenDispute)
	sessions.Get("/:id/disputes", disputeHandler.ListSessionDisputes)

	disputes := authProtected.Group("/disputes")
	disputes.Post("/:id/review", disputeHandler.MarkUnderReview)
	disputes.Post("/:id/resolve", disputeHandler.ResolveDispute)

	payouts := authProtected.Group("/payouts")
	payouts.Post("", payoutHandler.RequestPayout)
	payouts.Get("", payoutHandler.ListPayouts)
	payouts.Post("/:id/cancel", payoutHandler.CancelPayout)
	payouts.Post("/:id/processing", payoutHandler.MarkProcessing)
	payouts.Post("/:id/complete", payoutHandler.MarkCompleted)
	payouts.Post("/:id/fail", payoutHandler.MarkFailed)

	api.Use("/v1/ws/balance", notificationHandler.WebSocketAuth)
	api.Get("/v1/ws/balance", websocket.New(notificationHandler.HandleWebSocket))
}
