package fakebackend

import "time"

// Wire shapes, numbers as JSON numbers the way the real backend sends them.

type brokerStockDTO struct {
	Symbol       string  `json:"symbol"`
	Quantity     int64   `json:"quantity"`
	AveragePrice float64 `json:"averagePrice"`
}

type brokerDTO struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Balance   float64          `json:"balance"`
	Stocks    []brokerStockDTO `json:"stocks"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type stockPriceDTO struct {
	Date string `json:"date"`
	Open string `json:"open"`
}

type stockDTO struct {
	Symbol         string          `json:"symbol"`
	CompanyName    string          `json:"companyName"`
	IsActive       bool            `json:"isActive"`
	CurrentPrice   string          `json:"currentPrice"`
	HistoricalData []stockPriceDTO `json:"historicalData"`
}

type portfolioItemDTO struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	Quantity          int64   `json:"quantity"`
	AveragePrice      float64 `json:"averagePrice"`
	CurrentPrice      float64 `json:"currentPrice"`
	TotalValue        float64 `json:"totalValue"`
	ProfitLoss        float64 `json:"profitLoss"`
	ProfitLossPercent float64 `json:"profitLossPercent"`
}

type portfolioDTO struct {
	Broker           brokerDTO          `json:"broker"`
	Portfolio        []portfolioItemDTO `json:"portfolio"`
	TotalBalance     float64            `json:"totalBalance"`
	TotalStocksValue float64            `json:"totalStocksValue"`
	TotalInvested    float64            `json:"totalInvested"`
	TotalProfitLoss  float64            `json:"totalProfitLoss"`
}

type settingsDTO struct {
	StartDate   string  `json:"startDate"`
	SpeedFactor float64 `json:"speedFactor"`
	IsActive    bool    `json:"isActive"`
	CurrentDate string  `json:"currentDate,omitempty"`
}

type quoteDTO struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type statusDTO struct {
	IsActive    bool       `json:"isActive"`
	CurrentDate string     `json:"currentDate"`
	StockPrices []quoteDTO `json:"stockPrices"`
}

type errorDTO struct {
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message"`
	Error      string `json:"error"`
}
