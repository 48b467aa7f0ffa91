package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bucheron/internal/domain"
	apperrors "bucheron/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSettingsRepo struct {
	FindByKeyFunc func(ctx context.Context, key string) (*domain.SettingsRecord, error)
}

func (m *mockSettingsRepo) FindByKey(ctx context.Context, key string) (*domain.SettingsRecord, error) {
	return m.FindByKeyFunc(ctx, key)
}

func recordWith(doc string) *mockSettingsRepo {
	return &mockSettingsRepo{FindByKeyFunc: func(_ context.Context, key string) (*domain.SettingsRecord, error) {
		return &domain.SettingsRecord{Key: key, Document: doc, UpdatedAt: time.Now()}, nil
	}}
}

func TestSettings_NotConfigured(t *testing.T) {
	repo := &mockSettingsRepo{FindByKeyFunc: func(context.Context, string) (*domain.SettingsRecord, error) {
		return nil, apperrors.NewNotFoundError("missing")
	}}
	svc := NewSettingsService(repo, zap.NewNop())

	s, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s.Legal)

	bank, err := svc.BankDetails(context.Background())
	require.NoError(t, err)
	assert.Nil(t, bank)
}

func TestSettings_BankDetails(t *testing.T) {
	svc := NewSettingsService(recordWith(`{"bank":{"bankName":"Crédit Agricole","iban":"FR76 1234","bic":"AGRIFRPP"}}`), zap.NewNop())

	bank, err := svc.BankDetails(context.Background())
	require.NoError(t, err)
	require.NotNil(t, bank)
	assert.Equal(t, "AGRIFRPP", bank.BIC)
}

func TestSettings_BankWithoutIBANIsIgnored(t *testing.T) {
	svc := NewSettingsService(recordWith(`{"bank":{"bankName":"Crédit Agricole"}}`), zap.NewNop())

	bank, err := svc.BankDetails(context.Background())
	require.NoError(t, err)
	assert.Nil(t, bank)
}

func TestSettings_CorruptDocument(t *testing.T) {
	svc := NewSettingsService(recordWith(`{not json`), zap.NewNop())

	_, err := svc.Settings(context.Background())
	var ie *apperrors.InternalError
	assert.True(t, errors.As(err, &ie))
}
