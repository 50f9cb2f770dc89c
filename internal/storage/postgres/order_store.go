package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderStore struct {
	db *sql.DB
}

// NewOrderStore создаёт PostgreSQL-реализацию OrderStore.
func NewOrderStore(store *Store) domain.OrderStore {
	return &orderStore{db: store.DB()}
}

func (s *orderStore) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("order.create", fmt.Errorf("begin tx: %w", err))
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			reference, subtotal, delivery_fee, total, currency,
			payment_method, payment_status, status, gateway_transaction_id,
			address_street, address_city, address_landmark,
			contact_name, contact_phone, contact_email,
			version, created_at, updated_at, paid_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`,
		order.Reference, order.Subtotal, order.DeliveryFee, order.Total, order.Currency,
		string(order.PaymentMethod), string(order.PaymentStatus), string(order.Status),
		nullString(order.GatewayTransactionID),
		order.Address.Street, order.Address.City, order.Address.Landmark,
		order.Contact.Name, order.Contact.Phone, order.Contact.Email,
		order.Version, order.CreatedAt, order.UpdatedAt, order.PaidAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Проиграна гонка вставки по тому же reference.
			return domain.ErrOrderVersionConflict
		}
		return classify("order.create", fmt.Errorf("insert order: %w", err))
	}

	if err = s.insertItems(ctx, tx, order.Reference, order.Items); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return classify("order.create", fmt.Errorf("commit create order: %w", err))
	}

	return nil
}

func (s *orderStore) Get(reference string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		order         domain.Order
		status        string
		paymentStatus string
		method        string
		gatewayTxnID  sql.NullString
		paidAt        sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT reference, subtotal, delivery_fee, total, currency,
		       payment_method, payment_status, status, gateway_transaction_id,
		       address_street, address_city, address_landmark,
		       contact_name, contact_phone, contact_email,
		       version, created_at, updated_at, paid_at
		FROM orders
		WHERE reference = $1
	`, reference).Scan(
		&order.Reference, &order.Subtotal, &order.DeliveryFee, &order.Total, &order.Currency,
		&method, &paymentStatus, &status, &gatewayTxnID,
		&order.Address.Street, &order.Address.City, &order.Address.Landmark,
		&order.Contact.Name, &order.Contact.Phone, &order.Contact.Email,
		&order.Version, &order.CreatedAt, &order.UpdatedAt, &paidAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, classify("order.get", fmt.Errorf("select order: %w", err))
	}

	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.PaymentMethod = domain.PaymentMethod(method)
	if gatewayTxnID.Valid {
		order.GatewayTransactionID = gatewayTxnID.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}

	items, err := s.loadItems(ctx, order.Reference)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (s *orderStore) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("order.save", fmt.Errorf("begin tx: %w", err))
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET
			subtotal = $2, delivery_fee = $3, total = $4, currency = $5,
			payment_method = $6, payment_status = $7, status = $8,
			gateway_transaction_id = $9,
			address_street = $10, address_city = $11, address_landmark = $12,
			contact_name = $13, contact_phone = $14, contact_email = $15,
			version = version + 1, updated_at = $16, paid_at = $17
		WHERE reference = $1 AND version = $18
	`,
		order.Reference, order.Subtotal, order.DeliveryFee, order.Total, order.Currency,
		string(order.PaymentMethod), string(order.PaymentStatus), string(order.Status),
		nullString(order.GatewayTransactionID),
		order.Address.Street, order.Address.City, order.Address.Landmark,
		order.Contact.Name, order.Contact.Phone, order.Contact.Email,
		order.UpdatedAt, order.PaidAt, order.Version,
	)
	if err != nil {
		return classify("order.save", fmt.Errorf("update order: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return classify("order.save", fmt.Errorf("rows affected: %w", err))
	}
	if affected == 0 {
		// Либо заказа нет, либо версия устарела — различаем отдельным запросом.
		var exists bool
		if err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE reference = $1)`, order.Reference,
		).Scan(&exists); err != nil {
			return classify("order.save", fmt.Errorf("check order exists: %w", err))
		}
		if !exists {
			err = domain.ErrOrderNotFound
			return err
		}
		err = domain.ErrOrderVersionConflict
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM order_items WHERE order_reference = $1`, order.Reference,
	); err != nil {
		return classify("order.save", fmt.Errorf("delete order items: %w", err))
	}
	if err = s.insertItems(ctx, tx, order.Reference, order.Items); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return classify("order.save", fmt.Errorf("commit save order: %w", err))
	}

	return nil
}

func (s *orderStore) insertItems(ctx context.Context, tx *sql.Tx, reference string, items []domain.OrderItem) error {
	for pos, item := range items {
		variant, err := json.Marshal(item.Variant)
		if err != nil {
			return fmt.Errorf("marshal item variant: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_reference, position, product_id, name, qty, unit_price, variant
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			reference, pos, item.ProductID, item.Name, item.Qty, item.UnitPrice, variant,
		); err != nil {
			return classify("order.save", fmt.Errorf("insert order item: %w", err))
		}
	}
	return nil
}

func (s *orderStore) loadItems(ctx context.Context, reference string) ([]domain.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, qty, unit_price, variant
		FROM order_items
		WHERE order_reference = $1
		ORDER BY position
	`, reference)
	if err != nil {
		return nil, classify("order.get", fmt.Errorf("select order items: %w", err))
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item    domain.OrderItem
			variant []byte
		)
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Qty, &item.UnitPrice, &variant); err != nil {
			return nil, classify("order.get", fmt.Errorf("scan order item: %w", err))
		}
		if len(variant) > 0 {
			if err := json.Unmarshal(variant, &item.Variant); err != nil {
				return nil, fmt.Errorf("unmarshal item variant: %w", err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("order.get", fmt.Errorf("iterate order items: %w", err))
	}

	return items, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

var _ domain.OrderStore = (*orderStore)(nil)
