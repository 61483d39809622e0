package model

import "time"

type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Known setting keys
const (
	SettingRewardsPaused = "rewards_paused"
	SettingSupportEmail  = "support_email"
	SettingStoreName     = "store_name"
)
