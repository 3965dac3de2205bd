package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading_terminal/internal/fakebackend"
	"trading_terminal/internal/models"
)

func setup(t *testing.T) (*fakebackend.Backend, *Client) {
	t.Helper()
	b := fakebackend.New()
	b.AddStock("AAPL", "Apple Inc.", 170.25, true)
	b.AddStock("TSLA", "Tesla", 200, true)
	b.AddStock("GME", "GameStop", 20, false)
	srv := b.Serve()
	t.Cleanup(srv.Close)
	return b, NewClient(srv.URL+"/", WithLogger(zap.NewNop().Sugar()))
}

func within(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	require.True(t, want.Sub(got).Abs().LessThanOrEqual(decimal.NewFromFloat(0.01)),
		"want %s, got %s", want, got)
}

func TestClient_Brokers(t *testing.T) {
	b, c := setup(t)
	ctx := context.Background()
	id := b.AddBroker("Alice", 10000)

	list, err := c.ListBrokers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Alice", list[0].Name)

	br, err := c.GetBroker(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, br.ID)
	require.True(t, br.Balance.Equal(decimal.NewFromInt(10000)))

	balance := decimal.NewFromInt(500)
	created, err := c.CreateBroker(ctx, models.NewBroker{Name: "Bob", Balance: &balance})
	require.NoError(t, err)
	require.True(t, created.Balance.Equal(balance))

	name := "Robert"
	updated, err := c.UpdateBroker(ctx, created.ID, models.BrokerPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Robert", updated.Name)
	require.True(t, updated.Balance.Equal(balance))

	require.NoError(t, c.DeleteBroker(ctx, created.ID))
	_, err = c.GetBroker(ctx, created.ID)
	require.Equal(t, KindRejected, KindOf(err))
	require.Equal(t, "Broker not found", ServerMessage(err))
}

func TestClient_BuyAndSell(t *testing.T) {
	b, c := setup(t)
	ctx := context.Background()
	id := b.AddBroker("Alice", 10000)

	br, err := c.BuyStock(ctx, id, "AAPL", 10)
	require.NoError(t, err)
	within(t, decimal.NewFromFloat(10000-1702.5), br.Balance)

	h, ok := br.Holding("AAPL")
	require.True(t, ok)
	require.EqualValues(t, 10, h.Quantity)
	// First purchase: cost basis is the execution price.
	within(t, decimal.NewFromFloat(170.25), h.AveragePrice)

	b.SetPrice("AAPL", 180)
	br, err = c.BuyStock(ctx, id, "AAPL", 10)
	require.NoError(t, err)
	h, _ = br.Holding("AAPL")
	within(t, decimal.NewFromFloat(175.125), h.AveragePrice)

	br, err = c.SellStock(ctx, id, "AAPL", 5)
	require.NoError(t, err)
	within(t, decimal.NewFromFloat(10000-1702.5-1800+900), br.Balance)
	h, _ = br.Holding("AAPL")
	require.EqualValues(t, 15, h.Quantity)

	br, err = c.SellStock(ctx, id, "AAPL", 15)
	require.NoError(t, err)
	_, ok = br.Holding("AAPL")
	require.False(t, ok)
}

func TestClient_Portfolio(t *testing.T) {
	b, c := setup(t)
	ctx := context.Background()
	id := b.AddBroker("Alice", 10000)

	_, err := c.BuyStock(ctx, id, "TSLA", 4)
	require.NoError(t, err)
	b.SetPrice("TSLA", 210)

	p, err := c.GetPortfolio(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, p.Broker.ID)
	require.Len(t, p.Items, 1)

	it, ok := p.Item("TSLA")
	require.True(t, ok)
	want := it.CurrentPrice.Sub(it.AveragePrice).Mul(decimal.NewFromInt(it.Quantity))
	within(t, want, it.ProfitLoss)
	within(t, decimal.NewFromInt(40), it.ProfitLoss)
	within(t, decimal.NewFromInt(840), p.TotalStocksValue)
	within(t, decimal.NewFromInt(9200+840), p.TotalBalance)
	within(t, decimal.NewFromInt(800), p.TotalInvested)
}

func TestClient_Stocks(t *testing.T) {
	_, c := setup(t)
	ctx := context.Background()

	stocks, err := c.ListStocks(ctx)
	require.NoError(t, err)
	require.Len(t, stocks, 3)

	s, err := c.GetStock(ctx, "AAPL")
	require.NoError(t, err)
	require.Equal(t, "$170.25", s.CurrentPrice)
	require.InDelta(t, 170.25, s.Price(), 0.001)
	require.NotEmpty(t, s.HistoricalData)

	s, err = c.UpdateStockTradingStatus(ctx, "GME", true)
	require.NoError(t, err)
	require.True(t, s.IsActive)

	_, err = c.GetStock(ctx, "NOPE")
	require.Equal(t, KindRejected, KindOf(err))
}

func TestClient_Trading(t *testing.T) {
	_, c := setup(t)
	ctx := context.Background()

	settings, err := c.GetTradingSettings(ctx)
	require.NoError(t, err)
	require.False(t, settings.IsActive)
	require.Equal(t, "2024-01-02", settings.StartDate)

	speed := decimal.NewFromInt(5)
	settings, err = c.UpdateTradingSettings(ctx, models.TradingSettingsPatch{SpeedFactor: &speed})
	require.NoError(t, err)
	require.True(t, settings.SpeedFactor.Equal(speed))

	status, err := c.StartTrading(ctx)
	require.NoError(t, err)
	require.True(t, status.IsActive)
	require.Len(t, status.StockPrices, 3)

	require.NoError(t, c.StopTrading(ctx))
	settings, err = c.GetTradingSettings(ctx)
	require.NoError(t, err)
	require.False(t, settings.IsActive)

	status, err = c.ResetTrading(ctx)
	require.NoError(t, err)
	require.Equal(t, "2024-01-02", status.CurrentDate)
}

func TestClient_ErrorKinds(t *testing.T) {
	b, c := setup(t)
	ctx := context.Background()
	id := b.AddBroker("Alice", 100)

	t.Run("insufficient funds is rejected and changes nothing", func(t *testing.T) {
		_, err := c.BuyStock(ctx, id, "AAPL", 1)
		require.Equal(t, KindRejected, KindOf(err))
		require.Equal(t, "Insufficient funds", ServerMessage(err))

		bal, _ := b.Balance(id)
		require.True(t, bal.Equal(decimal.NewFromInt(100)))
		br, err := c.GetBroker(ctx, id)
		require.NoError(t, err)
		require.Empty(t, br.Stocks)
	})

	t.Run("non-positive quantity is a validation error", func(t *testing.T) {
		_, err := c.BuyStock(ctx, id, "AAPL", 0)
		require.Equal(t, KindValidation, KindOf(err))
		require.Contains(t, err.Error(), "quantity must be a positive number")
	})

	t.Run("inactive stock is rejected", func(t *testing.T) {
		_, err := c.BuyStock(ctx, id, "GME", 1)
		require.Equal(t, KindRejected, KindOf(err))
	})

	t.Run("selling more than held", func(t *testing.T) {
		_, err := c.SellStock(ctx, id, "AAPL", 1)
		require.Equal(t, KindRejected, KindOf(err))
		require.Equal(t, "Not enough stocks to sell", ServerMessage(err))
	})

	t.Run("empty broker id never leaves the client", func(t *testing.T) {
		before := b.Calls("POST /brokers/{id}/buy")
		_, err := c.BuyStock(ctx, "", "AAPL", 1)
		require.Equal(t, KindValidation, KindOf(err))
		require.Equal(t, before, b.Calls("POST /brokers/{id}/buy"))

		_, err = c.GetPortfolio(ctx, "  ")
		require.Equal(t, KindValidation, KindOf(err))
	})
}

func TestClient_ServerAndTransportFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("5xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"statusCode":500,"message":"Internal server error"}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).ListBrokers(ctx)
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, KindNetwork, apiErr.Kind)
		require.Equal(t, 500, apiErr.Status)
		require.Equal(t, "Internal server error", apiErr.Message)
	})

	t.Run("422", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).ListStocks(ctx)
		require.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("error field fallback", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"statusCode":403,"error":"Forbidden"}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).ListStocks(ctx)
		require.Equal(t, KindRejected, KindOf(err))
		require.Equal(t, "Forbidden", ServerMessage(err))
	})

	t.Run("undecodable body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).ListStocks(ctx)
		require.Equal(t, KindNetwork, KindOf(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(url).ListStocks(ctx)
		require.Equal(t, KindNetwork, KindOf(err))
		require.Empty(t, ServerMessage(err))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, WithTimeout(20*time.Millisecond)).ListStocks(ctx)
		require.Equal(t, KindNetwork, KindOf(err))
	})
}

func TestClient_RequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListBrokers(context.Background())
	require.NoError(t, err)
	require.Equal(t, "application/json", got.Get("Accept"))
	_, err = uuid.Parse(got.Get("X-Request-ID"))
	require.NoError(t, err)
}

func TestKindOf_ForeignError(t *testing.T) {
	require.Equal(t, KindNetwork, KindOf(errors.New("boom")))
	require.Equal(t, "", ServerMessage(errors.New("boom")))
	require.Equal(t, "validation", KindValidation.String())
}
