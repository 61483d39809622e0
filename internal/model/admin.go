package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// AdminLog records a back-office action taken by an admin.
type AdminLog struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	AdminID          string         `json:"admin_id" db:"admin_id"`
	Action           string         `json:"action" db:"action"`
	TargetCustomerID *int64         `json:"target_customer_id,omitempty" db:"target_customer_id"`
	Details          types.JSONText `json:"details" db:"details"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}

// Admin action constants
const (
	AdminActionAdjustBalance  = "adjust_balance"
	AdminActionEnroll         = "enroll_subscription"
	AdminActionCancelSub      = "cancel_subscription"
	AdminActionCreatePlan     = "create_plan"
	AdminActionUpdatePlan     = "update_plan"
	AdminActionDeactivatePlan = "deactivate_plan"
	AdminActionSetSetting     = "set_setting"
	AdminActionDeleteSetting  = "delete_setting"
	AdminActionUpsertDiscount = "upsert_category_discount"
	AdminActionDeleteDiscount = "delete_category_discount"
	AdminActionRunRewards     = "run_rewards"
)
