package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/repository"
)

var ErrInvalidSetting = errors.New("invalid setting")

type settingsRepo interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) ([]model.Setting, error)
	DeleteSetting(ctx context.Context, key string) error
}

type SettingsService struct {
	repo settingsRepo
}

func NewSettingsService(repo settingsRepo) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	return s.repo.GetSetting(ctx, key)
}

func (s *SettingsService) List(ctx context.Context) ([]model.Setting, error) {
	return s.repo.ListSettings(ctx)
}

// Set stores a setting. Known keys are validated; others are stored as is.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidSetting)
	}

	switch key {
	case model.SettingRewardsPaused:
		paused, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidSetting, key)
		}
		value = strconv.FormatBool(paused)
	case model.SettingSupportEmail:
		if _, err := mail.ParseAddress(value); err != nil {
			return fmt.Errorf("%w: %s must be an email address", ErrInvalidSetting, key)
		}
	}

	return s.repo.SetSetting(ctx, key, value)
}

func (s *SettingsService) Delete(ctx context.Context, key string) error {
	return s.repo.DeleteSetting(ctx, key)
}

// RewardsPaused reports whether admins paused reward runs. A missing setting
// means not paused.
func (s *SettingsService) RewardsPaused(ctx context.Context) (bool, error) {
	value, err := s.repo.GetSetting(ctx, model.SettingRewardsPaused)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return false, nil
		}
		return false, err
	}
	paused, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: stored %s=%q", ErrInvalidSetting, model.SettingRewardsPaused, value)
	}
	return paused, nil
}
