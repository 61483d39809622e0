package service

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

type adminLogRepo interface {
	CreateAdminLog(ctx context.Context, log *model.AdminLog) error
	GetAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error)
	GetAdminLogsByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]model.AdminLog, error)
}

// AdminLogService keeps the audit trail of admin actions.
type AdminLogService struct {
	repo adminLogRepo
	log  *logrus.Logger
}

func NewAdminLogService(repo adminLogRepo, log *logrus.Logger) *AdminLogService {
	return &AdminLogService{repo: repo, log: log}
}

// Record appends an audit entry. A failure to write the trail is logged and
// does not undo the action.
func (s *AdminLogService) Record(ctx context.Context, adminID, action string, targetCustomerID *int64, details any) {
	entry := &model.AdminLog{
		AdminID:          adminID,
		Action:           action,
		TargetCustomerID: targetCustomerID,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.log.WithError(err).WithField("action", action).Warn("Failed to encode admin log details")
		} else {
			entry.Details = raw
		}
	}

	if err := s.repo.CreateAdminLog(ctx, entry); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"admin_id": adminID,
			"action":   action,
		}).Error("Failed to write admin log")
	}
}

func (s *AdminLogService) List(ctx context.Context, customerID int64, limit, offset int) ([]model.AdminLog, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if customerID > 0 {
		return s.repo.GetAdminLogsByCustomer(ctx, customerID, limit, offset)
	}
	return s.repo.GetAdminLogs(ctx, limit, offset)
}
