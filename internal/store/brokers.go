package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"trading_terminal/internal/models"
)

// BrokerAPI is the part of the REST client the broker store needs.
type BrokerAPI interface {
	ListBrokers(ctx context.Context) ([]models.Broker, error)
	GetBroker(ctx context.Context, id string) (*models.Broker, error)
	BuyStock(ctx context.Context, brokerID, symbol string, quantity int64) (*models.Broker, error)
	SellStock(ctx context.Context, brokerID, symbol string, quantity int64) (*models.Broker, error)
	GetPortfolio(ctx context.Context, brokerID string) (*models.Portfolio, error)
}

// BrokerStore holds the broker list, the current broker and its portfolio.
type BrokerStore struct {
	state
	api    BrokerAPI
	trades keyedMutex

	mu        sync.RWMutex
	brokers   []models.Broker
	current   *models.Broker
	portfolio *models.Portfolio
}

func NewBrokerStore(client BrokerAPI, log *zap.SugaredLogger) *BrokerStore {
	if log == nil {
		log = zap.S()
	}
	return &BrokerStore{state: state{log: log}, api: client}
}

// Brokers returns the last fetched broker list.
func (s *BrokerStore) Brokers() []models.Broker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Broker(nil), s.brokers...)
}

// Current returns the current broker snapshot, or nil.
func (s *BrokerStore) Current() *models.Broker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	b := copyBroker(*s.current)
	return &b
}

// Portfolio returns the last fetched portfolio, or nil.
func (s *BrokerStore) Portfolio() *models.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.portfolio == nil {
		return nil
	}
	p := *s.portfolio
	p.Broker = copyBroker(p.Broker)
	p.Items = append([]models.PortfolioItem(nil), p.Items...)
	return &p
}

func (s *BrokerStore) FetchBrokers(ctx context.Context) bool {
	defer s.begin()()
	list, err := s.api.ListBrokers(ctx)
	if err != nil {
		s.fail("fetch brokers", "Failed to fetch brokers", err)
		return false
	}
	s.mu.Lock()
	s.brokers = list
	s.mu.Unlock()
	return true
}

func (s *BrokerStore) FetchBroker(ctx context.Context, id string) bool {
	defer s.begin()()
	b, err := s.api.GetBroker(ctx, id)
	if err != nil {
		s.fail("fetch broker", "Failed to fetch broker", err)
		return false
	}
	s.setCurrent(b)
	return true
}

// FetchPortfolio replaces both the portfolio and the current broker with the server's view.
func (s *BrokerStore) FetchPortfolio(ctx context.Context, id string) bool {
	defer s.begin()()
	return s.fetchPortfolio(ctx, id)
}

func (s *BrokerStore) fetchPortfolio(ctx context.Context, id string) bool {
	p, err := s.api.GetPortfolio(ctx, id)
	if err != nil {
		s.fail("fetch portfolio", "Failed to fetch portfolio", err)
		return false
	}
	s.mu.Lock()
	s.portfolio = p
	b := p.Broker
	s.current = &b
	s.mu.Unlock()
	return true
}

// BuyStock buys and then refreshes the portfolio. It reports whether the trade went through;
// a failed refresh after a successful trade still returns true and leaves its error in Err.
func (s *BrokerStore) BuyStock(ctx context.Context, brokerID, symbol string, quantity int64) bool {
	return s.trade(ctx, "buy stock", "Failed to buy stock", brokerID, func() (*models.Broker, error) {
		return s.api.BuyStock(ctx, brokerID, symbol, quantity)
	})
}

// SellStock is BuyStock's counterpart.
func (s *BrokerStore) SellStock(ctx context.Context, brokerID, symbol string, quantity int64) bool {
	return s.trade(ctx, "sell stock", "Failed to sell stock", brokerID, func() (*models.Broker, error) {
		return s.api.SellStock(ctx, brokerID, symbol, quantity)
	})
}

// trade runs one trade plus refresh with no other trade for the same broker in between.
// The error slot is cleared only once the broker lock is held, so a queued trade never
// reports the failure of the one before it.
func (s *BrokerStore) trade(ctx context.Context, op, fallback, brokerID string, call func() (*models.Broker, error)) bool {
	unlock := s.trades.Lock(brokerID)
	defer unlock()
	defer s.begin()()

	b, err := call()
	if err != nil {
		s.fail(op, fallback, err)
		return false
	}
	s.setCurrent(b)
	s.log.Infow(op, "broker", brokerID, "balance", b.Balance.StringFixed(2))

	s.fetchPortfolio(ctx, brokerID)
	return true
}

func (s *BrokerStore) setCurrent(b *models.Broker) {
	s.mu.Lock()
	s.current = b
	s.mu.Unlock()
}

func copyBroker(b models.Broker) models.Broker {
	b.Stocks = append([]models.BrokerStock(nil), b.Stocks...)
	return b
}
