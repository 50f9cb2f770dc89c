package catalog

import "github.com/vladislavdragonenkov/checkout/internal/domain"

// MockService — конфигурируемая заглушка CatalogService для тестов.
type MockService struct {
	Prices map[string]float64
	Err    error

	Calls int
}

// NewMockService возвращает mock с заданным прайс-листом.
func NewMockService(prices map[string]float64) *MockService {
	return &MockService{Prices: prices}
}

// UnitPrice возвращает цену из прайс-листа и считает вызовы.
func (m *MockService) UnitPrice(productID string) (float64, error) {
	m.Calls++
	if m.Err != nil {
		return 0, m.Err
	}
	price, ok := m.Prices[productID]
	if !ok {
		return 0, domain.ErrProductUnknown
	}
	return price, nil
}

var _ domain.CatalogService = (*MockService)(nil)
