package repository

import (
	"context"
	"database/sql"
	"fmt"

	"bucheron/internal/domain"
)

type MySQLStatusHistoryRepository struct {
	db *sql.DB
}

func NewMySQLStatusHistoryRepository(db *sql.DB) *MySQLStatusHistoryRepository {
	return &MySQLStatusHistoryRepository{db: db}
}

func (r *MySQLStatusHistoryRepository) Insert(ctx context.Context, tx *sql.Tx, orderID uint, change domain.StatusChange) error {
	query := `INSERT INTO OrderStatusHistory (orderId, status, paymentStatus, note, createdAt) VALUES (?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query, orderID, string(change.Status), string(change.PaymentStatus), change.Note, change.At)
	if err != nil {
		return fmt.Errorf("inserting order history: %w", err)
	}
	return nil
}
