package pricing

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Config — тарифы доставки. Передаётся явно при конструировании.
type Config struct {
	// FreeDeliveryThreshold — subtotal, начиная с которого доставка бесплатна.
	FreeDeliveryThreshold float64
	// FlatDeliveryFee — фиксированная плата за доставку ниже порога.
	FlatDeliveryFee float64
}

// CheckoutDraft — черновик заказа, присланный клиентом. Все суммы в нём
// считаются недоверенными до пересчёта по каталогу.
type CheckoutDraft struct {
	Reference   string
	Items       []domain.OrderItem
	Subtotal    float64
	DeliveryFee float64
	Total       float64
	Currency    string
}

// PricedOrder — пересчитанные сервером суммы и позиции с ценами каталога.
// Дальше по конвейеру идут только эти значения, не заявленные клиентом.
type PricedOrder struct {
	Items       []domain.OrderItem
	Subtotal    float64
	DeliveryFee float64
	Total       float64
	Currency    string
}

// Validator пересчитывает и сверяет суммы черновика заказа.
type Validator struct {
	catalog domain.CatalogService
	config  Config
	logger  *log.Entry
}

// NewValidator создаёт валидатор поверх доверенного каталога.
func NewValidator(catalog domain.CatalogService, config Config, logger *log.Entry) *Validator {
	if logger == nil {
		logger = log.New().WithField("component", "pricing")
	}
	return &Validator{
		catalog: catalog,
		config:  config,
		logger:  logger,
	}
}

// Validate пересчитывает черновик по каталогу и сверяет заявленные суммы.
// Любое расхождение сверх допуска — ErrAmountMismatch: детали логируются,
// но наружу не возвращаются. Нерезолвящийся товар тоже ErrAmountMismatch:
// отката к клиентской цене нет.
func (v *Validator) Validate(draft CheckoutDraft) (PricedOrder, error) {
	if len(draft.Items) == 0 {
		return PricedOrder{}, domain.ErrItemsRequired
	}
	if draft.Currency == "" {
		return PricedOrder{}, domain.ErrCurrencyRequired
	}

	priced := make([]domain.OrderItem, len(draft.Items))
	var subtotal float64
	for i, item := range draft.Items {
		if item.Qty <= 0 {
			return PricedOrder{}, domain.ErrItemQtyInvalid
		}

		unitPrice, err := v.catalog.UnitPrice(item.ProductID)
		if err != nil {
			v.logger.WithError(err).WithFields(log.Fields{
				"reference":  draft.Reference,
				"product_id": item.ProductID,
			}).Error("catalog lookup failed, rejecting draft")
			return PricedOrder{}, fmt.Errorf("price product %s: %w", item.ProductID, domain.ErrAmountMismatch)
		}

		item.UnitPrice = unitPrice
		priced[i] = item
		subtotal += float64(item.Qty) * unitPrice
	}

	if !domain.AmountsEqual(subtotal, draft.Subtotal) {
		v.logger.WithFields(log.Fields{
			"reference":  draft.Reference,
			"claimed":    draft.Subtotal,
			"recomputed": subtotal,
		}).Error("claimed subtotal does not match catalog recomputation")
		return PricedOrder{}, domain.ErrAmountMismatch
	}

	fee, err := v.deliveryFee(subtotal, draft.DeliveryFee)
	if err != nil {
		v.logger.WithFields(log.Fields{
			"reference": draft.Reference,
			"claimed":   draft.DeliveryFee,
			"subtotal":  subtotal,
		}).Error("claimed delivery fee does not match configured fee")
		return PricedOrder{}, err
	}

	total := subtotal + fee
	if !domain.AmountsEqual(total, draft.Total) {
		v.logger.WithFields(log.Fields{
			"reference":  draft.Reference,
			"claimed":    draft.Total,
			"recomputed": total,
		}).Error("claimed total does not match recomputation")
		return PricedOrder{}, domain.ErrAmountMismatch
	}

	return PricedOrder{
		Items:       priced,
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       total,
		Currency:    draft.Currency,
	}, nil
}

// deliveryFee проверяет заявленную плату за доставку: ноль при достижении
// порога бесплатной доставки, иначе ровно фиксированный тариф.
func (v *Validator) deliveryFee(subtotal, claimed float64) (float64, error) {
	if subtotal >= v.config.FreeDeliveryThreshold {
		if !domain.AmountsEqual(claimed, 0) {
			return 0, domain.ErrDeliveryFeeInvalid
		}
		return 0, nil
	}
	if !domain.AmountsEqual(claimed, v.config.FlatDeliveryFee) {
		return 0, domain.ErrDeliveryFeeInvalid
	}
	return v.config.FlatDeliveryFee, nil
}
