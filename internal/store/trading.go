package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"trading_terminal/internal/models"
)

// TradingAPI is the admin part of the REST client.
type TradingAPI interface {
	GetTradingSettings(ctx context.Context) (*models.TradingSettings, error)
	UpdateTradingSettings(ctx context.Context, patch models.TradingSettingsPatch) (*models.TradingSettings, error)
	StartTrading(ctx context.Context) (*models.TradingStatus, error)
	StopTrading(ctx context.Context) error
	ResetTrading(ctx context.Context) (*models.TradingStatus, error)
	UpdateStockTradingStatus(ctx context.Context, symbol string, isActive bool) (*models.Stock, error)
}

// TradingStore drives the global simulation. It holds the REST view of the settings and the
// status returned by the last start or reset; live values come from the push channel.
type TradingStore struct {
	state
	api TradingAPI

	mu       sync.RWMutex
	settings *models.TradingSettings
	status   *models.TradingStatus
}

func NewTradingStore(client TradingAPI, log *zap.SugaredLogger) *TradingStore {
	if log == nil {
		log = zap.S()
	}
	return &TradingStore{state: state{log: log}, api: client}
}

func (s *TradingStore) Settings() *models.TradingSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil
	}
	v := *s.settings
	return &v
}

func (s *TradingStore) Status() *models.TradingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == nil {
		return nil
	}
	v := *s.status
	v.StockPrices = append([]models.StockQuote(nil), v.StockPrices...)
	return &v
}

func (s *TradingStore) FetchSettings(ctx context.Context) bool {
	defer s.begin()()
	v, err := s.api.GetTradingSettings(ctx)
	if err != nil {
		s.fail("fetch trading settings", "Failed to fetch trading settings", err)
		return false
	}
	s.setSettings(v)
	return true
}

func (s *TradingStore) UpdateSettings(ctx context.Context, patch models.TradingSettingsPatch) bool {
	defer s.begin()()
	v, err := s.api.UpdateTradingSettings(ctx, patch)
	if err != nil {
		s.fail("update trading settings", "Failed to update trading settings", err)
		return false
	}
	s.setSettings(v)
	return true
}

func (s *TradingStore) Start(ctx context.Context) bool {
	defer s.begin()()
	st, err := s.api.StartTrading(ctx)
	if err != nil {
		s.fail("start trading", "Failed to start trading", err)
		return false
	}
	s.setStatus(st)
	s.log.Infow("trading started", "date", st.CurrentDate)
	return true
}

// Stop halts the simulation. The server answers with nothing, so the settings are re-read.
func (s *TradingStore) Stop(ctx context.Context) bool {
	defer s.begin()()
	if err := s.api.StopTrading(ctx); err != nil {
		s.fail("stop trading", "Failed to stop trading", err)
		return false
	}
	s.log.Infow("trading stopped")

	if v, err := s.api.GetTradingSettings(ctx); err != nil {
		s.fail("fetch trading settings", "Failed to fetch trading settings", err)
	} else {
		s.setSettings(v)
	}
	return true
}

func (s *TradingStore) Reset(ctx context.Context) bool {
	defer s.begin()()
	st, err := s.api.ResetTrading(ctx)
	if err != nil {
		s.fail("reset trading", "Failed to reset trading", err)
		return false
	}
	s.setStatus(st)
	s.log.Infow("trading reset", "date", st.CurrentDate)
	return true
}

// SetStockActive toggles whether a stock can be traded.
func (s *TradingStore) SetStockActive(ctx context.Context, symbol string, active bool) bool {
	defer s.begin()()
	if _, err := s.api.UpdateStockTradingStatus(ctx, symbol, active); err != nil {
		s.fail("update stock trading status", "Failed to update stock", err)
		return false
	}
	return true
}

func (s *TradingStore) setSettings(v *models.TradingSettings) {
	s.mu.Lock()
	s.settings = v
	s.mu.Unlock()
}

func (s *TradingStore) setStatus(st *models.TradingStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}
