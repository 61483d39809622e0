package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CategoryDiscount struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	CategoryID string          `json:"category_id" db:"category_id"`
	Percent    decimal.Decimal `json:"percent" db:"percent"`
	IsActive   bool            `json:"is_active" db:"is_active"`
	ValidFrom  *time.Time      `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil *time.Time      `json:"valid_until,omitempty" db:"valid_until"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// AppliesAt reports whether the discount is active at t.
func (d *CategoryDiscount) AppliesAt(t time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.ValidFrom != nil && t.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && t.After(*d.ValidUntil) {
		return false
	}
	return true
}
