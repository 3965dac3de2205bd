package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"trading_terminal/internal/models"
)

// StockAPI is the part of the REST client the stock store needs.
type StockAPI interface {
	ListStocks(ctx context.Context) ([]models.Stock, error)
	GetStock(ctx context.Context, symbol string) (*models.Stock, error)
}

// StockStore holds the stock list and the last fetched single stock.
type StockStore struct {
	state
	api StockAPI

	mu      sync.RWMutex
	stocks  []models.Stock
	current *models.Stock
}

func NewStockStore(client StockAPI, log *zap.SugaredLogger) *StockStore {
	if log == nil {
		log = zap.S()
	}
	return &StockStore{state: state{log: log}, api: client}
}

func (s *StockStore) Stocks() []models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Stock(nil), s.stocks...)
}

func (s *StockStore) Current() *models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	st := *s.current
	st.HistoricalData = append([]models.StockPrice(nil), st.HistoricalData...)
	return &st
}

func (s *StockStore) FetchStocks(ctx context.Context) bool {
	defer s.begin()()
	list, err := s.api.ListStocks(ctx)
	if err != nil {
		s.fail("fetch stocks", "Failed to fetch stocks", err)
		return false
	}
	s.mu.Lock()
	s.stocks = list
	s.mu.Unlock()
	return true
}

func (s *StockStore) FetchStock(ctx context.Context, symbol string) bool {
	defer s.begin()()
	st, err := s.api.GetStock(ctx, symbol)
	if err != nil {
		s.fail("fetch stock", "Failed to fetch stock", err)
		return false
	}
	s.mu.Lock()
	s.current = st
	s.mu.Unlock()
	return true
}

// ParsePrice turns "$123.45" into 123.45. Callers must check the result with math.IsNaN.
func (s *StockStore) ParsePrice(price string) float64 {
	return models.ParsePrice(price)
}
