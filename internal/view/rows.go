package view

import (
	"strconv"

	"trading_terminal/internal/models"
)

// BrokerRow is a broker summary line.
type BrokerRow struct {
	ID        string `json:"id" yaml:"id" csv:"id"`
	Name      string `json:"name" yaml:"name" csv:"name"`
	Balance   string `json:"balance" yaml:"balance" csv:"balance"`
	Positions int    `json:"positions" yaml:"positions" csv:"positions"`
}

func (BrokerRow) Headers() []string { return []string{"ID", "NAME", "BALANCE", "POSITIONS"} }

func (r BrokerRow) Cells() []string {
	return []string{dimStyle.Render(r.ID), r.Name, r.Balance, strconv.Itoa(r.Positions)}
}

func BrokerRows(brokers []models.Broker) []BrokerRow {
	rows := make([]BrokerRow, 0, len(brokers))
	for _, b := range brokers {
		rows = append(rows, BrokerRow{
			ID:        b.ID,
			Name:      b.Name,
			Balance:   models.FormatMoney(b.Balance),
			Positions: len(b.Stocks),
		})
	}
	return rows
}

// StockRow is a stock line. Price prefers the live pushed price when one is known.
type StockRow struct {
	Symbol  string `json:"symbol" yaml:"symbol" csv:"symbol"`
	Company string `json:"companyName" yaml:"companyName" csv:"company"`
	Price   string `json:"price" yaml:"price" csv:"price"`
	Active  bool   `json:"isActive" yaml:"isActive" csv:"active"`
}

func (StockRow) Headers() []string { return []string{"SYMBOL", "COMPANY", "PRICE", "TRADING"} }

func (r StockRow) Cells() []string {
	badge := activeStyle.Render("active")
	if !r.Active {
		badge = inactiveStyle.Render("halted")
	}
	return []string{symbolStyle.Render(r.Symbol), r.Company, r.Price, badge}
}

func StockRows(stocks []models.Stock, live *models.TradingStatus) []StockRow {
	rows := make([]StockRow, 0, len(stocks))
	for _, s := range stocks {
		price := s.CurrentPrice
		if live != nil {
			if p, ok := live.PriceOf(s.Symbol); ok {
				price = p
			}
		}
		rows = append(rows, StockRow{Symbol: s.Symbol, Company: s.CompanyName, Price: price, Active: s.IsActive})
	}
	return rows
}

// HoldingRow is a portfolio line, figures as the server computed them.
type HoldingRow struct {
	Symbol        string `json:"symbol" yaml:"symbol" csv:"symbol"`
	Company       string `json:"companyName" yaml:"companyName" csv:"company"`
	Quantity      int64  `json:"quantity" yaml:"quantity" csv:"quantity"`
	AveragePrice  string `json:"averagePrice" yaml:"averagePrice" csv:"average_price"`
	CurrentPrice  string `json:"currentPrice" yaml:"currentPrice" csv:"current_price"`
	TotalValue    string `json:"totalValue" yaml:"totalValue" csv:"total_value"`
	ProfitLoss    string `json:"profitLoss" yaml:"profitLoss" csv:"profit_loss"`
	ProfitLossPct string `json:"profitLossPercent" yaml:"profitLossPercent" csv:"profit_loss_percent"`
}

func (HoldingRow) Headers() []string {
	return []string{"SYMBOL", "COMPANY", "QTY", "AVG PRICE", "PRICE", "VALUE", "P/L", "P/L %"}
}

func (r HoldingRow) Cells() []string {
	st := signedStyle(r.ProfitLoss)
	return []string{
		symbolStyle.Render(r.Symbol),
		r.Company,
		strconv.FormatInt(r.Quantity, 10),
		r.AveragePrice,
		r.CurrentPrice,
		r.TotalValue,
		st.Render(r.ProfitLoss),
		st.Render(r.ProfitLossPct),
	}
}

func HoldingRows(p *models.Portfolio) []HoldingRow {
	if p == nil {
		return nil
	}
	rows := make([]HoldingRow, 0, len(p.Items))
	for _, it := range p.Items {
		rows = append(rows, HoldingRow{
			Symbol:        it.Symbol,
			Company:       it.CompanyName,
			Quantity:      it.Quantity,
			AveragePrice:  models.FormatMoney(it.AveragePrice),
			CurrentPrice:  models.FormatMoney(it.CurrentPrice),
			TotalValue:    models.FormatMoney(it.TotalValue),
			ProfitLoss:    models.FormatSignedMoney(it.ProfitLoss),
			ProfitLossPct: models.FormatPercent(it.ProfitLossPercent),
		})
	}
	return rows
}

// SettingsRow is the trading settings as a single listing line.
type SettingsRow struct {
	StartDate   string `json:"startDate" yaml:"startDate" csv:"start_date"`
	SpeedFactor string `json:"speedFactor" yaml:"speedFactor" csv:"speed_factor"`
	IsActive    bool   `json:"isActive" yaml:"isActive" csv:"active"`
	CurrentDate string `json:"currentDate,omitempty" yaml:"currentDate,omitempty" csv:"current_date"`
}

func NewSettingsRow(s models.TradingSettings) SettingsRow {
	return SettingsRow{StartDate: s.StartDate, SpeedFactor: s.SpeedFactor.String(), IsActive: s.IsActive, CurrentDate: s.CurrentDate}
}

func (SettingsRow) Headers() []string { return []string{"START DATE", "SPEED", "ACTIVE", "MARKET DATE"} }

func (r SettingsRow) Cells() []string {
	return []string{r.StartDate, "x" + r.SpeedFactor, strconv.FormatBool(r.IsActive), r.CurrentDate}
}
