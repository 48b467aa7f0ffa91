package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bucheron/internal/domain"
	"bucheron/internal/errors"
	"bucheron/internal/infrastructure/mysql"
)

type MySQLSubscriptionRepository struct {
	db *sql.DB
}

func NewMySQLSubscriptionRepository(db *sql.DB) *MySQLSubscriptionRepository {
	return &MySQLSubscriptionRepository{db: db}
}

func (r *MySQLSubscriptionRepository) Insert(ctx context.Context, sub domain.NewsletterSubscription) (uint, error) {
	interests, err := json.Marshal(sub.Interests)
	if err != nil {
		return 0, fmt.Errorf("encoding interests: %w", err)
	}

	query := `INSERT INTO NewsletterSubscriptions (email, firstName, interests, source) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, sub.Email, sub.FirstName, string(interests), sub.Source)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return 0, errors.NewConflictError("Cette adresse email est déjà inscrite à la newsletter")
		}
		return 0, fmt.Errorf("inserting newsletter subscription: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	return uint(id), nil
}

func (r *MySQLSubscriptionRepository) FindByEmail(ctx context.Context, email string) (*domain.NewsletterSubscription, error) {
	query := `SELECT id, email, firstName, interests, source, createdAt FROM NewsletterSubscriptions WHERE email = ?`

	var (
		sub       domain.NewsletterSubscription
		interests []byte
	)
	err := r.db.QueryRowContext(ctx, query, email).Scan(&sub.ID, &sub.Email, &sub.FirstName, &interests, &sub.Source, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("abonnement introuvable")
	}
	if err != nil {
		return nil, fmt.Errorf("querying newsletter subscription: %w", err)
	}
	sub.Interests = []string{}
	if len(interests) > 0 {
		if err := json.Unmarshal(interests, &sub.Interests); err != nil {
			return nil, fmt.Errorf("decoding interests: %w", err)
		}
	}
	return &sub, nil
}
