package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Broker is a simulated trading account as reported by the backend.
// The client never computes Balance itself, it only displays what the server returned.
type Broker struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"` // Cash
	Stocks    []BrokerStock   `json:"stocks"`  // Held positions
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Holding returns the held position for symbol, if any.
func (b Broker) Holding(symbol string) (BrokerStock, bool) {
	for _, s := range b.Stocks {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return BrokerStock{}, false
}

// BrokerStock is a held position. AveragePrice is the server-maintained cost basis.
type BrokerStock struct {
	Symbol       string          `json:"symbol"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
}

// Stock is a tradable instrument. CurrentPrice arrives currency formatted ("$123.45"),
// use Price() or ParsePrice to get a number out of it.
type Stock struct {
	Symbol         string       `json:"symbol"`
	CompanyName    string       `json:"companyName"`
	IsActive       bool         `json:"isActive"` // Buy/sell allowed
	CurrentPrice   string       `json:"currentPrice"`
	HistoricalData []StockPrice `json:"historicalData"`
}

// Price parses CurrentPrice. The result is NaN when the server sent something non-numeric.
func (s Stock) Price() float64 {
	return ParsePrice(s.CurrentPrice)
}

// StockPrice is a single read-only point of a stock's history.
type StockPrice struct {
	Date string `json:"date"`
	Open string `json:"open"`
}

// PortfolioItem is one server-computed portfolio row.
type PortfolioItem struct {
	Symbol            string          `json:"symbol"`
	CompanyName       string          `json:"companyName"`
	Quantity          int64           `json:"quantity"`
	AveragePrice      decimal.Decimal `json:"averagePrice"`
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	TotalValue        decimal.Decimal `json:"totalValue"`
	ProfitLoss        decimal.Decimal `json:"profitLoss"`
	ProfitLossPercent decimal.Decimal `json:"profitLossPercent"`
}

// Portfolio is a valuation snapshot of a broker's holdings at current prices.
type Portfolio struct {
	Broker           Broker          `json:"broker"`
	Items            []PortfolioItem `json:"portfolio"`
	TotalBalance     decimal.Decimal `json:"totalBalance"`
	TotalStocksValue decimal.Decimal `json:"totalStocksValue"`
	TotalInvested    decimal.Decimal `json:"totalInvested"`
	TotalProfitLoss  decimal.Decimal `json:"totalProfitLoss"`
}

// Item returns the row for symbol, if present.
func (p Portfolio) Item(symbol string) (PortfolioItem, bool) {
	for _, it := range p.Items {
		if it.Symbol == symbol {
			return it, true
		}
	}
	return PortfolioItem{}, false
}

// TradingSettings is the global simulation configuration. There is one per backend.
type TradingSettings struct {
	StartDate   string          `json:"startDate"`
	SpeedFactor decimal.Decimal `json:"speedFactor"`
	IsActive    bool            `json:"isActive"`
	CurrentDate string          `json:"currentDate,omitempty"`
}

// TradingSettingsPatch is a partial settings update; nil fields are left untouched.
type TradingSettingsPatch struct {
	StartDate   *string          `json:"startDate,omitempty"`
	SpeedFactor *decimal.Decimal `json:"speedFactor,omitempty"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

// BrokerPatch is a partial broker update.
type BrokerPatch struct {
	Name    *string          `json:"name,omitempty"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

// NewBroker is the create payload. Balance is optional; the server picks a default.
type NewBroker struct {
	Name    string           `json:"name"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

// TradingStatus is the payload of a tradingStatus push event and of start/reset responses.
// Every event fully replaces the previous one.
type TradingStatus struct {
	IsActive    bool         `json:"isActive"`
	CurrentDate string       `json:"currentDate"`
	StockPrices []StockQuote `json:"stockPrices"`
}

// StockQuote is a symbol/price pair inside a TradingStatus. Price is currency formatted.
type StockQuote struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// PriceOf looks up the live price for symbol.
func (s TradingStatus) PriceOf(symbol string) (string, bool) {
	for _, q := range s.StockPrices {
		if q.Symbol == symbol {
			return q.Price, true
		}
	}
	return "", false
}

// TradeRequest is the body of buy and sell calls.
type TradeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}
