// Package view renders the terminal screens and listings.
package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/montanaflynn/stats"

	"trading_terminal/internal/models"
)

// LoginScreen lists the brokers one can log in as.
type LoginScreen struct {
	Brokers []models.Broker
	Error   string
}

// BrokerScreen is a broker's dashboard.
type BrokerScreen struct {
	Broker    *models.Broker
	Stocks    []models.Stock
	Portfolio *models.Portfolio
	Live      *models.TradingStatus // nil until the first push event
	Connected bool
	Error     string
}

// AdminScreen is the simulation control panel.
type AdminScreen struct {
	Brokers   []models.Broker
	Settings  *models.TradingSettings
	Connected bool
	Error     string
}

func RenderLogin(w io.Writer, s LoginScreen) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Trading Terminal") + "\n\n")
	if s.Error != "" {
		b.WriteString(errorStyle.Render("❌ "+s.Error) + "\n\n")
	}
	if len(s.Brokers) == 0 {
		b.WriteString(dimStyle.Render("No brokers yet.") + "\n")
	}
	for i, br := range s.Brokers {
		fmt.Fprintf(&b, "  %2d. %-20s %12s  %s\n", i+1, br.Name, models.FormatMoney(br.Balance), dimStyle.Render(br.ID))
	}
	b.WriteString("\n" + dimStyle.Render("/login <id> to trade as a broker, /admin for the control panel") + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func RenderBroker(w io.Writer, s BrokerScreen) error {
	var b strings.Builder
	name := "Broker"
	if s.Broker != nil {
		name = s.Broker.Name
	}
	b.WriteString(titleStyle.Render(name) + "  " + marketLine(s.Live, s.Connected) + "\n")
	if s.Broker != nil {
		fmt.Fprintf(&b, "Cash: %s\n", models.FormatMoney(s.Broker.Balance))
	}
	if s.Error != "" {
		b.WriteString(errorStyle.Render("❌ "+s.Error) + "\n")
	}

	b.WriteString("\n" + headerStyle.Render("Stocks") + "\n")
	b.WriteString(table(StockRow{}.Headers(), StockRows(s.Stocks, s.Live)))

	b.WriteString("\n" + headerStyle.Render("Portfolio") + "\n")
	b.WriteString(table(HoldingRow{}.Headers(), HoldingRows(s.Portfolio)))

	if p := s.Portfolio; p != nil {
		pl := models.FormatSignedMoney(p.TotalProfitLoss)
		fmt.Fprintf(&b, "\nStocks value: %s   Invested: %s   Total: %s   P/L: %s\n",
			models.FormatMoney(p.TotalStocksValue),
			models.FormatMoney(p.TotalInvested),
			models.FormatMoney(p.TotalBalance),
			signedStyle(pl).Render(pl))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func RenderAdmin(w io.Writer, s AdminScreen) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Administration") + "  " + connectionBadge(s.Connected) + "\n")
	if s.Error != "" {
		b.WriteString(errorStyle.Render("❌ "+s.Error) + "\n")
	}

	if st := s.Settings; st != nil {
		state := inactiveStyle.Render("stopped")
		if st.IsActive {
			state = activeStyle.Render("running")
		}
		fmt.Fprintf(&b, "\nTrading: %s   Start date: %s   Speed: x%s", state, st.StartDate, st.SpeedFactor.String())
		if st.CurrentDate != "" {
			fmt.Fprintf(&b, "   Market date: %s", st.CurrentDate)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + headerStyle.Render("Brokers") + "\n")
	b.WriteString(table(BrokerRow{}.Headers(), BrokerRows(s.Brokers)))
	if mean, median, ok := BalanceStats(s.Brokers); ok {
		fmt.Fprintf(&b, "\nMean balance: $%.2f   Median balance: $%.2f\n", mean, median)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// BalanceStats returns the mean and median cash balance. ok is false for an empty list.
func BalanceStats(brokers []models.Broker) (mean, median float64, ok bool) {
	data := make(stats.Float64Data, 0, len(brokers))
	for _, b := range brokers {
		data = append(data, b.Balance.InexactFloat64())
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return 0, 0, false
	}
	median, err = stats.Median(data)
	if err != nil {
		return 0, 0, false
	}
	return mean, median, true
}

func marketLine(live *models.TradingStatus, connected bool) string {
	date := "market date unknown"
	if live != nil && live.CurrentDate != "" {
		date = "📅 " + live.CurrentDate
	}
	return dimStyle.Render(date) + "  " + connectionBadge(connected)
}

func connectionBadge(connected bool) string {
	if connected {
		return activeStyle.Render("● live")
	}
	return inactiveStyle.Render("○ offline")
}
