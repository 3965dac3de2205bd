package api

import (
	"context"
	"net/http"

	"trading_terminal/internal/models"
)

func (c *Client) ListStocks(ctx context.Context) ([]models.Stock, error) {
	var out []models.Stock
	if err := c.do(ctx, http.MethodGet, "/stocks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStock(ctx context.Context, symbol string) (*models.Stock, error) {
	seg, err := segment("GetStock", "symbol", symbol)
	if err != nil {
		return nil, err
	}
	var out models.Stock
	if err := c.do(ctx, http.MethodGet, "/stocks/"+seg, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStockTradingStatus toggles whether symbol can be bought or sold.
func (c *Client) UpdateStockTradingStatus(ctx context.Context, symbol string, isActive bool) (*models.Stock, error) {
	seg, err := segment("UpdateStockTradingStatus", "symbol", symbol)
	if err != nil {
		return nil, err
	}
	var out models.Stock
	body := struct {
		IsActive bool `json:"isActive"`
	}{isActive}
	if err := c.do(ctx, http.MethodPatch, "/stocks/"+seg+"/trading-status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
