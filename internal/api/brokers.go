package api

import (
	"context"
	"net/http"

	"trading_terminal/internal/models"
)

func (c *Client) ListBrokers(ctx context.Context) ([]models.Broker, error) {
	var out []models.Broker
	if err := c.do(ctx, http.MethodGet, "/brokers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBroker(ctx context.Context, id string) (*models.Broker, error) {
	seg, err := segment("GetBroker", "broker id", id)
	if err != nil {
		return nil, err
	}
	var out models.Broker
	if err := c.do(ctx, http.MethodGet, "/brokers/"+seg, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBroker(ctx context.Context, in models.NewBroker) (*models.Broker, error) {
	var out models.Broker
	if err := c.do(ctx, http.MethodPost, "/brokers", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBroker(ctx context.Context, id string, patch models.BrokerPatch) (*models.Broker, error) {
	seg, err := segment("UpdateBroker", "broker id", id)
	if err != nil {
		return nil, err
	}
	var out models.Broker
	if err := c.do(ctx, http.MethodPatch, "/brokers/"+seg, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBroker(ctx context.Context, id string) error {
	seg, err := segment("DeleteBroker", "broker id", id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/brokers/"+seg, nil, nil)
}

// BuyStock buys quantity shares of symbol for the broker and returns the updated broker.
// Quantity is passed through as-is; the backend decides what is acceptable.
func (c *Client) BuyStock(ctx context.Context, brokerID, symbol string, quantity int64) (*models.Broker, error) {
	return c.trade(ctx, "buy", brokerID, symbol, quantity)
}

// SellStock sells quantity shares of symbol and returns the updated broker.
func (c *Client) SellStock(ctx context.Context, brokerID, symbol string, quantity int64) (*models.Broker, error) {
	return c.trade(ctx, "sell", brokerID, symbol, quantity)
}

func (c *Client) trade(ctx context.Context, side, brokerID, symbol string, quantity int64) (*models.Broker, error) {
	seg, err := segment(side, "broker id", brokerID)
	if err != nil {
		return nil, err
	}
	var out models.Broker
	body := models.TradeRequest{Symbol: symbol, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/brokers/"+seg+"/"+side, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPortfolio(ctx context.Context, brokerID string) (*models.Portfolio, error) {
	seg, err := segment("GetPortfolio", "broker id", brokerID)
	if err != nil {
		return nil, err
	}
	var out models.Portfolio
	if err := c.do(ctx, http.MethodGet, "/brokers/"+seg+"/portfolio", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
