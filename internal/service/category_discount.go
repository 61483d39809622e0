package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var (
	ErrInvalidDiscount  = errors.New("invalid category discount")
	ErrNoActiveDiscount = errors.New("no active discount for category")
)

var hundred = decimal.NewFromInt(100)

type categoryDiscountRepo interface {
	ListCategoryDiscounts(ctx context.Context) ([]model.CategoryDiscount, error)
	UpsertCategoryDiscount(ctx context.Context, d *model.CategoryDiscount) error
	DeleteCategoryDiscount(ctx context.Context, categoryID string) error
}

// DefaultCategoryDiscounts are installed by SeedDefaults for categories that
// have no discount yet.
var DefaultCategoryDiscounts = []model.CategoryDiscount{
	{CategoryID: "electronics", Percent: decimal.NewFromInt(5), IsActive: true},
	{CategoryID: "fashion", Percent: decimal.NewFromInt(10), IsActive: true},
	{CategoryID: "groceries", Percent: decimal.NewFromInt(2), IsActive: true},
	{CategoryID: "home", Percent: decimal.NewFromInt(7), IsActive: true},
}

type CategoryDiscountService struct {
	repo categoryDiscountRepo
	log  *logrus.Logger
}

func NewCategoryDiscountService(repo categoryDiscountRepo, log *logrus.Logger) *CategoryDiscountService {
	return &CategoryDiscountService{repo: repo, log: log}
}

func (s *CategoryDiscountService) List(ctx context.Context) ([]model.CategoryDiscount, error) {
	return s.repo.ListCategoryDiscounts(ctx)
}

func (s *CategoryDiscountService) Upsert(ctx context.Context, d *model.CategoryDiscount) error {
	d.CategoryID = strings.TrimSpace(d.CategoryID)
	switch {
	case d.CategoryID == "":
		return fmt.Errorf("%w: category_id is required", ErrInvalidDiscount)
	case d.Percent.IsNegative() || d.Percent.GreaterThan(hundred):
		return fmt.Errorf("%w: percent must be between 0 and 100", ErrInvalidDiscount)
	case !wholeCents(d.Percent):
		return fmt.Errorf("%w: percent has more than %d decimal places", ErrInvalidDiscount, moneyScale)
	case d.ValidFrom != nil && d.ValidUntil != nil && d.ValidUntil.Before(*d.ValidFrom):
		return fmt.Errorf("%w: valid_until is before valid_from", ErrInvalidDiscount)
	}
	return s.repo.UpsertCategoryDiscount(ctx, d)
}

func (s *CategoryDiscountService) Delete(ctx context.Context, categoryID string) error {
	return s.repo.DeleteCategoryDiscount(ctx, categoryID)
}

// Active returns the discount that applies to a category at t.
func (s *CategoryDiscountService) Active(ctx context.Context, categoryID string, at time.Time) (*model.CategoryDiscount, error) {
	discounts, err := s.repo.ListCategoryDiscounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range discounts {
		if discounts[i].CategoryID == categoryID && discounts[i].AppliesAt(at) {
			return &discounts[i], nil
		}
	}
	return nil, ErrNoActiveDiscount
}

// SeedDefaults installs DefaultCategoryDiscounts without touching categories
// that already have a discount. It returns how many were created.
func (s *CategoryDiscountService) SeedDefaults(ctx context.Context) (int, error) {
	existing, err := s.repo.ListCategoryDiscounts(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		have[d.CategoryID] = struct{}{}
	}

	created := 0
	for _, def := range DefaultCategoryDiscounts {
		if _, ok := have[def.CategoryID]; ok {
			continue
		}
		d := def
		if err := s.repo.UpsertCategoryDiscount(ctx, &d); err != nil {
			return created, fmt.Errorf("failed to seed %s: %w", d.CategoryID, err)
		}
		created++
		s.log.WithFields(logrus.Fields{
			"category_id": d.CategoryID,
			"percent":     d.Percent.String(),
		}).Info("Seeded category discount")
	}
	return created, nil
}
