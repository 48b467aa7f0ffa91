package service

import (
	"context"

	"bucheron/internal/company/repository"
	"bucheron/internal/domain"
	apperrors "bucheron/internal/errors"

	"go.uber.org/zap"
)

type SettingsRepository interface {
	FindByKey(ctx context.Context, key string) (*domain.SettingsRecord, error)
}

type SettingsService struct {
	repo   SettingsRepository
	logger *zap.Logger
}

func NewSettingsService(repo SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// Settings returns the site settings. A site that was never configured gets an
// empty document rather than an error.
func (s *SettingsService) Settings(ctx context.Context) (*domain.Settings, error) {
	rec, err := s.repo.FindByKey(ctx, repository.SiteSettingsKey)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			s.logger.Warn("site settings not configured")
			return &domain.Settings{Legal: map[string]string{}}, nil
		}
		return nil, err
	}

	settings, err := rec.Decode()
	if err != nil {
		return nil, apperrors.NewInternalError("decoding site settings", err)
	}
	return settings, nil
}

// BankDetails returns the transfer details to attach to new orders, or nil
// when none are configured yet.
func (s *SettingsService) BankDetails(ctx context.Context) (*domain.BankDetails, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.Bank == nil || settings.Bank.IBAN == "" {
		return nil, nil
	}
	bank := *settings.Bank
	return &bank, nil
}
