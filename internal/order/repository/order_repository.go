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

// ErrDuplicateOrder is returned by Insert when the order number or the
// idempotency key already exists.
var ErrDuplicateOrder = errors.NewConflictError("commande déjà enregistrée")

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

const orderColumns = `
	id, orderNumber, idempotencyKey, firstName, lastName, email, phone,
	street, complement, postalCode, city, region, country,
	subtotal, shippingCost, tax, total, status, paymentStatus, bankDetails,
	COALESCE(notes, ''), receiptPath, paymentDueDate, estimatedDelivery, createdAt, updatedAt`

func (r *MySQLOrderRepository) Insert(ctx context.Context, tx *sql.Tx, o *domain.Order) (uint, error) {
	var bank interface{}
	if o.BankDetails != nil {
		raw, err := json.Marshal(o.BankDetails)
		if err != nil {
			return 0, fmt.Errorf("encoding bank details: %w", err)
		}
		bank = string(raw)
	}

	query := `
		INSERT INTO Orders (
			orderNumber, idempotencyKey, firstName, lastName, email, phone,
			street, complement, postalCode, city, region, country,
			subtotal, shippingCost, tax, total, status, paymentStatus, bankDetails,
			notes, paymentDueDate, estimatedDelivery
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		o.OrderNumber, o.IdempotencyKey,
		o.Customer.FirstName, o.Customer.LastName, o.Customer.Email, o.Customer.Phone,
		o.ShippingAddress.Street, o.ShippingAddress.Complement, o.ShippingAddress.PostalCode,
		o.ShippingAddress.City, o.ShippingAddress.Region, o.ShippingAddress.Country,
		o.Subtotal, o.ShippingCost, o.Tax, o.Total,
		string(o.Status), string(o.PaymentStatus), bank,
		o.Notes, o.PaymentDueDate, o.EstimatedDelivery,
	)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return 0, ErrDuplicateOrder
		}
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	return uint(id), nil
}

// FindByNumber loads an order with its items and status history.
func (r *MySQLOrderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE orderNumber = ?`
	return r.findOne(ctx, query, number)
}

func (r *MySQLOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE idempotencyKey = ?`
	return r.findOne(ctx, query, key)
}

func (r *MySQLOrderRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Order, error) {
	var (
		o              domain.Order
		idempotencyKey sql.NullString
		receiptPath    sql.NullString
		bank           []byte
		status         string
		paymentStatus  string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&o.ID, &o.OrderNumber, &idempotencyKey,
		&o.Customer.FirstName, &o.Customer.LastName, &o.Customer.Email, &o.Customer.Phone,
		&o.ShippingAddress.Street, &o.ShippingAddress.Complement, &o.ShippingAddress.PostalCode,
		&o.ShippingAddress.City, &o.ShippingAddress.Region, &o.ShippingAddress.Country,
		&o.Subtotal, &o.ShippingCost, &o.Tax, &o.Total, &status, &paymentStatus, &bank,
		&o.Notes, &receiptPath, &o.PaymentDueDate, &o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("commande %v introuvable", arg))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}

	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if idempotencyKey.Valid {
		o.IdempotencyKey = &idempotencyKey.String
	}
	if receiptPath.Valid {
		o.ReceiptPath = &receiptPath.String
		o.ReceiptUploaded = true
	}
	if len(bank) > 0 && string(bank) != "null" {
		var details domain.BankDetails
		if err := json.Unmarshal(bank, &details); err != nil {
			return nil, fmt.Errorf("decoding bank details: %w", err)
		}
		o.BankDetails = &details
	}

	if o.Items, err = r.findItems(ctx, o.ID); err != nil {
		return nil, err
	}
	if o.StatusHistory, err = r.findHistory(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MySQLOrderRepository) findItems(ctx context.Context, orderID uint) ([]domain.OrderItem, error) {
	query := `SELECT id, orderId, productId, name, unit, quantity, price, total FROM OrderItems WHERE orderId = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Unit, &it.Quantity, &it.Price, &it.Total); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}
	return items, nil
}

func (r *MySQLOrderRepository) findHistory(ctx context.Context, orderID uint) ([]domain.StatusChange, error) {
	query := `SELECT status, paymentStatus, note, createdAt FROM OrderStatusHistory WHERE orderId = ? ORDER BY createdAt, id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order history: %w", err)
	}
	defer rows.Close()

	history := []domain.StatusChange{}
	for rows.Next() {
		var (
			c             domain.StatusChange
			status        string
			paymentStatus string
		)
		if err := rows.Scan(&status, &paymentStatus, &c.Note, &c.At); err != nil {
			return nil, fmt.Errorf("scanning order history: %w", err)
		}
		c.Status = domain.OrderStatus(status)
		c.PaymentStatus = domain.PaymentStatus(paymentStatus)
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order history: %w", err)
	}
	return history, nil
}

func (r *MySQLOrderRepository) AttachReceipt(ctx context.Context, tx *sql.Tx, id uint, path string) error {
	query := `UPDATE Orders SET receiptPath = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, path, id)
	if err != nil {
		return fmt.Errorf("updating order receipt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	return nil
}
