package catalog

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// StaticService — каталог с фиксированным прайс-листом из конфигурации.
// Используется там, где внешний каталог ещё не подключён.
type StaticService struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStaticService создаёт каталог поверх прайс-листа из конфигурации.
func NewStaticService(prices map[string]float64) *StaticService {
	copied := make(map[string]float64, len(prices))
	for id, price := range prices {
		copied[id] = price
	}
	return &StaticService{prices: copied}
}

// UnitPrice возвращает цену товара или ErrProductUnknown.
func (s *StaticService) UnitPrice(productID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[productID]
	if !ok {
		return 0, domain.ErrProductUnknown
	}
	return price, nil
}

var _ domain.CatalogService = (*StaticService)(nil)
