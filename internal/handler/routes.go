package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/middleware"
)

// Register mounts the admin API and the cron endpoints on app.
func (h *Handler) Register(app *fiber.App, jwtSecret, cronSecret string) {
	app.Get("/health", h.Health)

	admin := app.Group("/api/admin", middleware.AdminAuth(jwtSecret))

	// Plans
	admin.Get("/plans", h.ListPlans)
	admin.Post("/plans", h.CreatePlan)
	admin.Get("/plans/:plan_id", h.GetPlan)
	admin.Put("/plans/:plan_id", h.UpdatePlan)
	admin.Delete("/plans/:plan_id", h.DeactivatePlan)

	// Subscriptions
	admin.Get("/subscriptions", h.ListSubscriptions)
	admin.Post("/subscriptions", h.EnrollSubscription)
	admin.Get("/subscriptions/:subscription_id", h.GetSubscription)
	admin.Post("/subscriptions/:subscription_id/cancel", h.CancelSubscription)

	// Balances
	admin.Get("/customers/:customer_id/balances", h.GetBalances)
	admin.Get("/customers/:customer_id/ledger", h.GetLedger)
	admin.Get("/customers/:customer_id/reconcile", h.Reconcile)
	admin.Post("/customers/:customer_id/adjustments", h.AdjustBalance)

	// Settings
	admin.Get("/settings", h.ListSettings)
	admin.Get("/settings/:key", h.GetSetting)
	admin.Put("/settings/:key", h.SetSetting)
	admin.Delete("/settings/:key", h.DeleteSetting)

	// Category discounts
	admin.Get("/category-discounts", h.ListCategoryDiscounts)
	admin.Put("/category-discounts/:category_id", h.UpsertCategoryDiscount)
	admin.Delete("/category-discounts/:category_id", h.DeleteCategoryDiscount)

	// Admin logs
	admin.Get("/logs", h.ListAdminLogs)

	// Rewards
	admin.Post("/rewards/run", h.RunRewards)
	admin.Get("/rewards/last-run", h.LastRewardRun)

	// Internal endpoints (for cron jobs)
	internal := app.Group("/internal", middleware.CronSecret(cronSecret))
	internal.Post("/cron/rewards", h.CronRewards)
	internal.Post("/cron/expire", h.CronExpire)
}
