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

type paymentStore struct {
	db *sql.DB
}

// NewPaymentRecordStore создаёт PostgreSQL-реализацию PaymentRecordStore.
func NewPaymentRecordStore(store *Store) domain.PaymentRecordStore {
	return &paymentStore{db: store.DB()}
}

// Upsert вставляет или обновляет запись платежа. COALESCE/NULLIF сохраняют
// уже записанные reference и слепок, когда входящее событие их не несёт;
// metadata сливаются оператором ||.
func (s *paymentStore) Upsert(record domain.PaymentRecord) error {
	if errs := record.Validate(); len(errs) != 0 {
		return errs[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// nil-мапа сериализуется в JSON-скаляр null, а оператор || на
	// не-объекте превращает обе стороны в массивы. В колонке metadata
	// всегда лежит объект, пустой вместо отсутствующего.
	metadata := []byte("{}")
	if record.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(record.Metadata); err != nil {
			return fmt.Errorf("marshal payment metadata: %w", err)
		}
	}
	var snapshot []byte
	if record.Snapshot != nil {
		var err error
		if snapshot, err = json.Marshal(record.Snapshot); err != nil {
			return fmt.Errorf("marshal payment snapshot: %w", err)
		}
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_records (
			transaction_id, order_reference, provider, status,
			amount, currency, metadata, snapshot, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
		ON CONFLICT (transaction_id) DO UPDATE SET
			order_reference = COALESCE(NULLIF(EXCLUDED.order_reference, ''), payment_records.order_reference),
			provider        = COALESCE(NULLIF(EXCLUDED.provider, ''), payment_records.provider),
			status          = COALESCE(NULLIF(EXCLUDED.status, ''), payment_records.status),
			amount          = CASE WHEN EXCLUDED.amount <> 0 THEN EXCLUDED.amount ELSE payment_records.amount END,
			currency        = COALESCE(NULLIF(EXCLUDED.currency, ''), payment_records.currency),
			metadata        = CASE WHEN jsonb_typeof(payment_records.metadata) = 'object'
			                       THEN payment_records.metadata || EXCLUDED.metadata
			                       ELSE EXCLUDED.metadata END,
			snapshot        = COALESCE(EXCLUDED.snapshot, payment_records.snapshot),
			updated_at      = EXCLUDED.updated_at
	`,
		record.TransactionID, record.OrderReference, record.Provider, record.Status,
		record.Amount, record.Currency, metadata, snapshot, now,
	)
	if err != nil {
		return classify("payment.upsert", fmt.Errorf("upsert payment record: %w", err))
	}

	return nil
}

func (s *paymentStore) Get(transactionID string) (domain.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		record   domain.PaymentRecord
		ref      sql.NullString
		metadata []byte
		snapshot []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT transaction_id, order_reference, provider, status,
		       amount, currency, metadata, snapshot, created_at, updated_at
		FROM payment_records
		WHERE transaction_id = $1
	`, transactionID).Scan(
		&record.TransactionID, &ref, &record.Provider, &record.Status,
		&record.Amount, &record.Currency, &metadata, &snapshot,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentRecord{}, domain.ErrPaymentNotFound
		}
		return domain.PaymentRecord{}, classify("payment.get", fmt.Errorf("select payment record: %w", err))
	}

	if ref.Valid {
		record.OrderReference = ref.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
			return domain.PaymentRecord{}, fmt.Errorf("unmarshal payment metadata: %w", err)
		}
	}
	if len(snapshot) > 0 {
		var snap domain.OrderSnapshot
		if err := json.Unmarshal(snapshot, &snap); err != nil {
			return domain.PaymentRecord{}, fmt.Errorf("unmarshal payment snapshot: %w", err)
		}
		record.Snapshot = &snap
	}

	return record, nil
}

var _ domain.PaymentRecordStore = (*paymentStore)(nil)
