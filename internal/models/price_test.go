package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := map[string]float64{
		"$123.45":   123.45,
		"123.45":    123.45,
		" $7 ":      7,
		"$0.5":      0.5,
		"$.75":      0.75,
		"$12.5 USD": 12.5,
		"-$3.20":    -3.20,
		"$1e3":      1000,
		"$2e":       2,
	}
	for in, want := range cases {
		got := ParsePrice(in)
		require.InDelta(t, want, got, 1e-9, "input %q", in)
	}
}

func TestParsePrice_NoNumericPrefixIsNaN(t *testing.T) {
	for _, in := range []string{"", "$", "abc", "$abc", "USD 12", "$.", "--1", "$$5"} {
		require.NotPanics(t, func() {
			require.True(t, math.IsNaN(ParsePrice(in)), "input %q", in)
		})
	}
}

func TestParsePriceDecimal(t *testing.T) {
	d, ok := ParsePriceDecimal("$101.10")
	require.True(t, ok)
	require.True(t, d.Equal(decimal.RequireFromString("101.1")))

	_, ok = ParsePriceDecimal("n/a")
	require.False(t, ok)
}

func TestFormatSignedMoney(t *testing.T) {
	require.Equal(t, "+$12.34", FormatSignedMoney(decimal.RequireFromString("12.344")))
	require.Equal(t, "-$3.10", FormatSignedMoney(decimal.RequireFromString("-3.1")))
	require.Equal(t, "+$0.00", FormatSignedMoney(decimal.Zero))
	require.Equal(t, "$1234.50", FormatMoney(decimal.RequireFromString("1234.5")))
	require.Equal(t, "-$2.00", FormatMoney(decimal.NewFromInt(-2)))
	require.Equal(t, "-1.25%", FormatPercent(decimal.RequireFromString("-1.25")))
	require.Equal(t, "+4.20%", FormatPercent(decimal.RequireFromString("4.2")))
}

func TestPortfolio_DecodesServerShape(t *testing.T) {
	raw := `{
		"broker": {"id": "b1", "name": "Alice", "balance": 9500.5,
			"stocks": [{"symbol": "AAPL", "quantity": 3, "averagePrice": 166.5}],
			"createdAt": "2024-01-01T00:00:00.000Z", "updatedAt": "2024-01-02T00:00:00.000Z"},
		"portfolio": [{"symbol": "AAPL", "companyName": "Apple Inc.", "quantity": 3,
			"averagePrice": 166.5, "currentPrice": 170, "totalValue": 510,
			"profitLoss": 10.5, "profitLossPercent": 2.1}],
		"totalBalance": 10010.5, "totalStocksValue": 510, "totalInvested": 499.5, "totalProfitLoss": 10.5
	}`

	var p Portfolio
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	require.Equal(t, "Alice", p.Broker.Name)
	require.True(t, p.Broker.Balance.Equal(decimal.RequireFromString("9500.5")))
	h, ok := p.Broker.Holding("AAPL")
	require.True(t, ok)
	require.EqualValues(t, 3, h.Quantity)

	item, ok := p.Item("AAPL")
	require.True(t, ok)
	want := item.CurrentPrice.Sub(item.AveragePrice).Mul(decimal.NewFromInt(item.Quantity))
	require.True(t, want.Equal(item.ProfitLoss), "profit/loss %s != %s", item.ProfitLoss, want)

	_, ok = p.Item("MSFT")
	require.False(t, ok)
}

func TestTradingStatus_PriceOf(t *testing.T) {
	s := TradingStatus{StockPrices: []StockQuote{{Symbol: "AAPL", Price: "$170.00"}}}
	p, ok := s.PriceOf("AAPL")
	require.True(t, ok)
	require.Equal(t, "$170.00", p)
	require.InDelta(t, 170.0, ParsePrice(p), 1e-9)

	_, ok = s.PriceOf("TSLA")
	require.False(t, ok)
}
