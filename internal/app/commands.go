package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"trading_terminal/internal/models"
	"trading_terminal/internal/session"
	"trading_terminal/internal/view"
)

type CommandDoc struct {
	Name        string
	Description string
	Example     string
}

// HandleCommand runs one shell line and returns what to print.
func (a *App) HandleCommand(ctx context.Context, line string) string {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return ""
	}

	switch parts[0] {
	case "/help":
		return a.getHelp()
	case "/brokers":
		return a.render(ctx, "/")
	case "/login":
		if len(parts) < 2 {
			return "Usage: /login <broker-id>"
		}
		path, err := a.Login(ctx, parts[1])
		if err != nil {
			return "❌ Login failed: " + err.Error()
		}
		return fmt.Sprintf("✅ Logged in. Now at %s\n\n%s", path, a.render(ctx, path))
	case "/admin":
		path, err := a.LoginAdmin(ctx)
		if err != nil {
			return "❌ Admin login failed: " + err.Error()
		}
		return a.render(ctx, path)
	case "/logout":
		if err := a.Logout(); err != nil {
			return "⚠️ Logged out, but the session file could not be cleared: " + err.Error()
		}
		return "👋 Logged out."
	case "/open":
		if len(parts) < 2 {
			return "Usage: /open <path>"
		}
		return a.render(ctx, parts[1])
	case "/stocks":
		return a.handleStocksCommand(ctx)
	case "/price":
		if len(parts) < 2 {
			return "Usage: /price <symbol>"
		}
		return a.handlePriceCommand(ctx, strings.ToUpper(parts[1]))
	case "/portfolio":
		id, ok := a.brokerID()
		if !ok {
			return "⚠️ Not logged in as a broker. Use /login <broker-id>."
		}
		return a.render(ctx, "/broker/"+id)
	case "/buy", "/sell":
		return a.handleTradeCommand(ctx, parts)
	case "/status":
		return a.getStatus()
	case "/start":
		if !a.Trading.Start(ctx) {
			return "❌ " + message(a.Trading.Err())
		}
		return "▶️ Trading started."
	case "/stop":
		if !a.Trading.Stop(ctx) {
			return "❌ " + message(a.Trading.Err())
		}
		return "⏸️ Trading stopped."
	case "/reset":
		if !a.Trading.Reset(ctx) {
			return "❌ " + message(a.Trading.Err())
		}
		st := a.Trading.Status()
		return fmt.Sprintf("🔄 Trading reset. Market date: %s", st.CurrentDate)
	case "/speed":
		return a.handleSpeedCommand(ctx, parts)
	default:
		return "Unknown command. Try /help."
	}
}

func (a *App) getHelp() string {
	var sb strings.Builder
	sb.WriteString("📈 TRADING TERMINAL COMMANDS\n\n")
	for _, cmd := range a.commands {
		sb.WriteString(fmt.Sprintf("🔹 %-11s %s\n   %s\n", cmd.Name, cmd.Description, cmd.Example))
	}
	return sb.String()
}

func (a *App) render(ctx context.Context, path string) string {
	var sb strings.Builder
	if err := a.Open(ctx, path, &sb); err != nil {
		return "⚠️ " + err.Error()
	}
	return sb.String()
}

func (a *App) brokerID() (string, bool) {
	st := a.Session()
	if st.Role != session.RoleBroker || st.BrokerID == "" {
		return "", false
	}
	return st.BrokerID, true
}

func (a *App) handleStocksCommand(ctx context.Context) string {
	if !a.Stocks.FetchStocks(ctx) {
		return "❌ " + message(a.Stocks.Err())
	}
	var live *models.TradingStatus
	if st, ok := a.Push.Status(); ok {
		live = &st
	}
	var sb strings.Builder
	if err := view.Write(&sb, view.FormatTable, view.StockRows(a.Stocks.Stocks(), live)); err != nil {
		return "⚠️ " + err.Error()
	}
	return sb.String()
}

// handlePriceCommand prefers the live pushed price and falls back to a REST fetch.
func (a *App) handlePriceCommand(ctx context.Context, symbol string) string {
	if st, ok := a.Push.Status(); ok {
		if p, ok := st.PriceOf(symbol); ok {
			return fmt.Sprintf("💲 %s: %s (live, %s)", symbol, p, st.CurrentDate)
		}
	}
	if !a.Stocks.FetchStock(ctx, symbol) {
		return "❌ " + message(a.Stocks.Err())
	}
	s := a.Stocks.Current()
	return fmt.Sprintf("💲 %s: %s", s.Symbol, s.CurrentPrice)
}

func (a *App) handleTradeCommand(ctx context.Context, parts []string) string {
	side := strings.TrimPrefix(parts[0], "/")
	if len(parts) < 3 {
		return fmt.Sprintf("Usage: /%s <symbol> <qty>", side)
	}
	id, ok := a.brokerID()
	if !ok {
		return "⚠️ Not logged in as a broker. Use /login <broker-id>."
	}
	symbol := strings.ToUpper(parts[1])
	qty, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "⚠️ Invalid quantity format."
	}
	if err := a.CheckTradable(ctx, symbol); err != nil {
		return "❌ " + err.Error()
	}

	var done bool
	if side == "buy" {
		done = a.Brokers.BuyStock(ctx, id, symbol, qty)
	} else {
		done = a.Brokers.SellStock(ctx, id, symbol, qty)
	}
	if !done {
		return "❌ " + message(a.Brokers.Err())
	}

	msg := fmt.Sprintf("✅ Bought %d %s", qty, symbol)
	if side == "sell" {
		msg = fmt.Sprintf("✅ Sold %d %s", qty, symbol)
	}
	if b := a.Brokers.Current(); b != nil {
		msg += fmt.Sprintf("\nCash: %s", models.FormatMoney(b.Balance))
	}
	if f := a.Brokers.Err(); f != nil {
		msg += "\n⚠️ Portfolio refresh failed: " + f.Message
	}
	return msg
}

func (a *App) handleSpeedCommand(ctx context.Context, parts []string) string {
	if len(parts) < 2 {
		return "Usage: /speed <factor>"
	}
	factor, err := decimal.NewFromString(parts[1])
	if err != nil {
		return "⚠️ Invalid speed factor."
	}
	if !a.Trading.UpdateSettings(ctx, models.TradingSettingsPatch{SpeedFactor: &factor}) {
		return "❌ " + message(a.Trading.Err())
	}
	return fmt.Sprintf("⏩ Speed factor set to x%s", a.Trading.Settings().SpeedFactor.String())
}

func (a *App) getStatus() string {
	var sb strings.Builder
	sb.WriteString("📊 STATUS\n")

	conn := "🔴 offline"
	if a.Push.IsConnected() {
		conn = "🟢 live"
	}
	sb.WriteString(fmt.Sprintf("Push: %s\n", conn))

	if st, ok := a.Push.Status(); ok {
		state := "stopped"
		if st.IsActive {
			state = "running"
		}
		sb.WriteString(fmt.Sprintf("Market date: %s (%s, %d prices)\n", st.CurrentDate, state, len(st.StockPrices)))
	} else {
		sb.WriteString("Market date: unknown\n")
	}
	if s, ok := a.Push.Settings(); ok {
		sb.WriteString(fmt.Sprintf("Speed: x%s  Start: %s\n", s.SpeedFactor.String(), s.StartDate))
	}

	sess := a.Session()
	switch sess.Role {
	case session.RoleBroker:
		sb.WriteString(fmt.Sprintf("Logged in as broker %s\n", sess.BrokerID))
	case session.RoleAdmin:
		sb.WriteString("Logged in as admin\n")
	default:
		sb.WriteString("Not logged in\n")
	}
	sb.WriteString("Screen: " + a.Path())
	return sb.String()
}
