package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// paymentStoreInMemory — in-memory реализация PaymentRecordStore.
type paymentStoreInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.PaymentRecord
}

// NewPaymentRecordStore возвращает in-memory хранилище записей платежей.
func NewPaymentRecordStore() domain.PaymentRecordStore {
	return &paymentStoreInMemory{
		items: make(map[string]domain.PaymentRecord),
	}
}

// Upsert создаёт или обновляет запись по transaction id. Отсутствующие в
// записи слепок и order reference не затирают уже сохранённые: именно это
// делает повторную доставку событий безопасной.
func (s *paymentStoreInMemory) Upsert(record domain.PaymentRecord) error {
	if errs := record.Validate(); len(errs) != 0 {
		return errs[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	current, exists := s.items[record.TransactionID]
	if !exists {
		record.CreatedAt = now
		record.UpdatedAt = now
		s.items[record.TransactionID] = clonePayment(record)
		return nil
	}

	merged := current
	if record.OrderReference != "" {
		merged.OrderReference = record.OrderReference
	}
	if record.Provider != "" {
		merged.Provider = record.Provider
	}
	if record.Status != "" {
		merged.Status = record.Status
	}
	if record.Amount != 0 {
		merged.Amount = record.Amount
	}
	if record.Currency != "" {
		merged.Currency = record.Currency
	}
	if record.Snapshot != nil {
		merged.Snapshot = record.Snapshot
	}
	if len(record.Metadata) > 0 {
		if merged.Metadata == nil {
			merged.Metadata = make(map[string]string, len(record.Metadata))
		}
		for k, v := range record.Metadata {
			merged.Metadata[k] = v
		}
	}
	merged.UpdatedAt = now

	s.items[record.TransactionID] = clonePayment(merged)
	return nil
}

// Get возвращает запись или ErrPaymentNotFound, если её нет.
func (s *paymentStoreInMemory) Get(transactionID string) (domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.items[transactionID]
	if !ok {
		return domain.PaymentRecord{}, domain.ErrPaymentNotFound
	}
	return clonePayment(record), nil
}

func clonePayment(record domain.PaymentRecord) domain.PaymentRecord {
	clone := record
	if record.Metadata != nil {
		clone.Metadata = make(map[string]string, len(record.Metadata))
		for k, v := range record.Metadata {
			clone.Metadata[k] = v
		}
	}
	if record.Snapshot != nil {
		snap := *record.Snapshot
		if record.Snapshot.Items != nil {
			snap.Items = make([]domain.OrderItem, len(record.Snapshot.Items))
			copy(snap.Items, record.Snapshot.Items)
		}
		clone.Snapshot = &snap
	}
	return clone
}

var _ domain.PaymentRecordStore = (*paymentStoreInMemory)(nil)
