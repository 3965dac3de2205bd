package api

import (
	"context"
	"net/http"

	"trading_terminal/internal/models"
)

func (c *Client) GetTradingSettings(ctx context.Context) (*models.TradingSettings, error) {
	var out models.TradingSettings
	if err := c.do(ctx, http.MethodGet, "/trading/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTradingSettings(ctx context.Context, patch models.TradingSettingsPatch) (*models.TradingSettings, error) {
	var out models.TradingSettings
	if err := c.do(ctx, http.MethodPatch, "/trading/settings", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartTrading starts the simulated market clock.
func (c *Client) StartTrading(ctx context.Context) (*models.TradingStatus, error) {
	var out models.TradingStatus
	if err := c.do(ctx, http.MethodPost, "/trading/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StopTrading pauses the clock. The backend answers without a meaningful body.
func (c *Client) StopTrading(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/trading/stop", nil, nil)
}

// ResetTrading rewinds the clock to the configured start date.
func (c *Client) ResetTrading(ctx context.Context) (*models.TradingStatus, error) {
	var out models.TradingStatus
	if err := c.do(ctx, http.MethodPost, "/trading/reset", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
