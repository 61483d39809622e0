package main

import (
	"context"
	"flag"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/config"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/logger"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/repository"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/service"
)

func main() {
	withPlan := flag.Bool("demo-plan", false, "also create a demo reward plan when none exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.Server.LogLevel)

	repo, err := repository.New(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	discounts := service.NewCategoryDiscountService(repo, log)
	created, err := discounts.SeedDefaults(ctx)
	if err != nil {
		log.Fatalf("Failed to seed category discounts: %v", err)
	}
	log.WithField("created", created).Info("Category discounts seeded")

	settings := service.NewSettingsService(repo)
	if _, err := settings.Get(ctx, model.SettingRewardsPaused); err != nil {
		if err := settings.Set(ctx, model.SettingRewardsPaused, "false"); err != nil {
			log.Fatalf("Failed to seed settings: %v", err)
		}
	}

	if *withPlan {
		plans := service.NewPlanService(repo)
		existing, err := plans.ListPlans(ctx, false)
		if err != nil {
			log.Fatalf("Failed to list plans: %v", err)
		}
		if len(existing) == 0 {
			plan, err := plans.CreatePlan(ctx, service.PlanInput{
				Name:            "Monthly saver",
				Description:     "Daily shopping credit until the target is reached",
				RewardPerPeriod: decimal.NewFromInt(100),
				TargetAmount:    decimal.NewFromInt(2500),
				PurseKind:       model.PurseKindShoppingCredit,
				DurationDays:    45,
			})
			if err != nil {
				log.Fatalf("Failed to create demo plan: %v", err)
			}
			log.WithField("plan_id", plan.ID).Info("Demo plan created")
		}
	}
}
