package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bucheron/internal/domain"
)

type MySQLMessageRepository struct {
	db *sql.DB
}

func NewMySQLMessageRepository(db *sql.DB) *MySQLMessageRepository {
	return &MySQLMessageRepository{db: db}
}

func (r *MySQLMessageRepository) Insert(ctx context.Context, msg domain.ContactMessage) (uint, error) {
	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return 0, fmt.Errorf("encoding metadata: %w", err)
	}

	query := `
		INSERT INTO ContactMessages (firstName, lastName, email, phone, subject, message, orderNumber, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		msg.FirstName, msg.LastName, msg.Email, msg.Phone,
		msg.Subject, msg.Message, msg.OrderNumber, string(metadata),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting contact message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	return uint(id), nil
}

func (r *MySQLMessageRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ContactMessages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting contact messages: %w", err)
	}
	return n, nil
}
