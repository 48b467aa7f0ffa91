package repository

import (
	"context"
	"database/sql"
	"fmt"

	"bucheron/internal/domain"
	"bucheron/internal/errors"
)

// SiteSettingsKey is the row holding the storefront settings document.
const SiteSettingsKey = "site"

type MySQLSettingsRepository struct {
	db *sql.DB
}

func NewMySQLSettingsRepository(db *sql.DB) *MySQLSettingsRepository {
	return &MySQLSettingsRepository{db: db}
}

func (r *MySQLSettingsRepository) FindByKey(ctx context.Context, key string) (*domain.SettingsRecord, error) {
	query := `
		SELECT id, settingKey, document, createdAt, updatedAt
		FROM Settings
		WHERE settingKey = ?
	`

	var rec domain.SettingsRecord
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&rec.ID, &rec.Key, &rec.Document, &rec.CreatedAt, &rec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("settings %q not found", key))
	}
	if err != nil {
		return nil, fmt.Errorf("querying settings by key: %w", err)
	}

	return &rec, nil
}

// Upsert stores document under key, replacing any previous version.
func (r *MySQLSettingsRepository) Upsert(ctx context.Context, key, document string) error {
	query := `
		INSERT INTO Settings (settingKey, document) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE document = VALUES(document)
	`
	if _, err := r.db.ExecContext(ctx, query, key, document); err != nil {
		return fmt.Errorf("upserting settings: %w", err)
	}
	return nil
}
