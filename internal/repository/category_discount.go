package repository

import (
	"context"
	"errors"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var ErrCategoryDiscountNotFound = errors.New("category discount not found")

func (r *Repository) ListCategoryDiscounts(ctx context.Context) ([]model.CategoryDiscount, error) {
	discounts := []model.CategoryDiscount{}
	err := r.db.SelectContext(ctx, &discounts, "SELECT * FROM category_discounts ORDER BY category_id ASC")
	return discounts, err
}

// UpsertCategoryDiscount creates or replaces the discount of a category.
func (r *Repository) UpsertCategoryDiscount(ctx context.Context, d *model.CategoryDiscount) error {
	query := `
		INSERT INTO category_discounts (category_id, percent, is_active, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (category_id) DO UPDATE SET
			percent = EXCLUDED.percent,
			is_active = EXCLUDED.is_active,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		d.CategoryID,
		d.Percent,
		d.IsActive,
		d.ValidFrom,
		d.ValidUntil,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *Repository) DeleteCategoryDiscount(ctx context.Context, categoryID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM category_discounts WHERE category_id = $1", categoryID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCategoryDiscountNotFound
	}
	return nil
}
