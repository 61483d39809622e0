package repository

import (
	"context"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

// CreateAdminLog creates an admin action log entry
func (r *Repository) CreateAdminLog(ctx context.Context, log *model.AdminLog) error {
	if len(log.Details) == 0 {
		log.Details = model.EmptyMetadata
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO admin_logs (admin_id, action, target_customer_id, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		log.AdminID, log.Action, log.TargetCustomerID, log.Details,
	).Scan(&log.ID, &log.CreatedAt)
}

// GetAdminLogs retrieves admin action logs, newest first
func (r *Repository) GetAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error) {
	logs := []model.AdminLog{}
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM admin_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	return logs, err
}

// GetAdminLogsByCustomer retrieves admin logs that touched a customer
func (r *Repository) GetAdminLogsByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]model.AdminLog, error) {
	logs := []model.AdminLog{}
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM admin_logs
		WHERE target_customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, customerID, limit, offset)
	return logs, err
}
