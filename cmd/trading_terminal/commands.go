package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"trading_terminal/internal/models"
	"trading_terminal/internal/push"
	"trading_terminal/internal/session"
	"trading_terminal/internal/store"
	"trading_terminal/internal/view"
)

// fail turns a store error slot into a command error.
func fail(f *store.Failure) error {
	if f == nil {
		return errors.New("request failed")
	}
	return f
}

func (c *cli) brokersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brokers",
		Short: "List broker accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Brokers.FetchBrokers(cmd.Context()) {
				return fail(c.app.Brokers.Err())
			}
			return view.Write(cmd.OutOrStdout(), c.format, view.BrokerRows(c.app.Brokers.Brokers()))
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <broker-id>",
		Short: "Log in as a broker and show the dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.app.Login(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ Logged in, now at %s\n", path)
			return c.app.Open(cmd.Context(), path, cmd.OutOrStdout())
		},
	}
}

func (c *cli) adminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Log in as administrator and show the control panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.app.LoginAdmin(cmd.Context())
			if err != nil {
				return err
			}
			return c.app.Open(cmd.Context(), path, cmd.OutOrStdout())
		},
	}
}

func (c *cli) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open [path]",
		Short: "Render a screen: /, /broker/<id> or /admin (defaults to the saved session)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.app.Path()
			if len(args) == 1 {
				path = args[0]
			}
			return c.app.Open(cmd.Context(), path, cmd.OutOrStdout())
		},
	}
}

func (c *cli) stocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stocks",
		Short: "List stocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Stocks.FetchStocks(cmd.Context()) {
				return fail(c.app.Stocks.Err())
			}
			return view.Write(cmd.OutOrStdout(), c.format, view.StockRows(c.app.Stocks.Stocks(), nil))
		},
	}
}

// brokerArg picks the broker from --broker, falling back to the logged-in one.
func (c *cli) brokerArg(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	st := c.app.Session()
	if st.Role == session.RoleBroker && st.BrokerID != "" {
		return st.BrokerID, nil
	}
	return "", errors.New("no broker selected: pass --broker or run login first")
}

func (c *cli) portfolioCmd() *cobra.Command {
	var broker string
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show a broker's holdings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.brokerArg(broker)
			if err != nil {
				return err
			}
			if !c.app.Brokers.FetchPortfolio(cmd.Context(), id) {
				return fail(c.app.Brokers.Err())
			}
			p := c.app.Brokers.Portfolio()
			if err := view.Write(cmd.OutOrStdout(), c.format, view.HoldingRows(p)); err != nil {
				return err
			}
			if c.format == view.FormatTable {
				fmt.Fprintf(cmd.OutOrStdout(), "\nCash: %s   Total: %s   P/L: %s\n",
					models.FormatMoney(p.Broker.Balance),
					models.FormatMoney(p.TotalBalance),
					models.FormatSignedMoney(p.TotalProfitLoss))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&broker, "broker", "b", "", "broker id (defaults to the logged-in broker)")
	return cmd
}

func (c *cli) tradeCmd(side string) *cobra.Command {
	var broker string
	cmd := &cobra.Command{
		Use:   side + " <symbol> <qty>",
		Short: strings.ToUpper(side[:1]) + side[1:] + " shares",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.brokerArg(broker)
			if err != nil {
				return err
			}
			symbol := strings.ToUpper(args[0])
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			if err := c.app.CheckTradable(cmd.Context(), symbol); err != nil {
				return err
			}

			ok := false
			if side == "buy" {
				ok = c.app.Brokers.BuyStock(cmd.Context(), id, symbol, qty)
			} else {
				ok = c.app.Brokers.SellStock(cmd.Context(), id, symbol, qty)
			}
			if !ok {
				return fail(c.app.Brokers.Err())
			}

			out := cmd.OutOrStdout()
			if b := c.app.Brokers.Current(); b != nil {
				fmt.Fprintf(out, "✅ %s %d %s. Cash: %s\n", side, qty, symbol, models.FormatMoney(b.Balance))
			}
			if f := c.app.Brokers.Err(); f != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠️ portfolio refresh failed: %s\n", f.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&broker, "broker", "b", "", "broker id (defaults to the logged-in broker)")
	return cmd
}

func (c *cli) tradingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trading",
		Short: "Inspect and drive the market simulation",
	}

	settings := &cobra.Command{
		Use:   "settings",
		Short: "Show trading settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Trading.FetchSettings(cmd.Context()) {
				return fail(c.app.Trading.Err())
			}
			return c.printSettings(cmd.OutOrStdout(), c.app.Trading.Settings())
		},
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Trading.Start(cmd.Context()) {
				return fail(c.app.Trading.Err())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "▶️ Trading started at %s\n", c.app.Trading.Status().CurrentDate)
			return nil
		},
	}

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Trading.Stop(cmd.Context()) {
				return fail(c.app.Trading.Err())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "⏸️ Trading stopped")
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset the simulation clock to the start date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Trading.Reset(cmd.Context()) {
				return fail(c.app.Trading.Err())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🔄 Trading reset to %s\n", c.app.Trading.Status().CurrentDate)
			return nil
		},
	}

	var speed, startDate string
	var active bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Change trading settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.TradingSettingsPatch
			if cmd.Flags().Changed("speed") {
				f, err := decimal.NewFromString(speed)
				if err != nil {
					return fmt.Errorf("invalid speed %q", speed)
				}
				patch.SpeedFactor = &f
			}
			if cmd.Flags().Changed("start-date") {
				patch.StartDate = &startDate
			}
			if cmd.Flags().Changed("active") {
				patch.IsActive = &active
			}
			if patch == (models.TradingSettingsPatch{}) {
				return errors.New("nothing to change: pass --speed, --start-date or --active")
			}
			if !c.app.Trading.UpdateSettings(cmd.Context(), patch) {
				return fail(c.app.Trading.Err())
			}
			return c.printSettings(cmd.OutOrStdout(), c.app.Trading.Settings())
		},
	}
	set.Flags().StringVar(&speed, "speed", "", "simulation speed factor")
	set.Flags().StringVar(&startDate, "start-date", "", "simulation start date (YYYY-MM-DD)")
	set.Flags().BoolVar(&active, "active", false, "whether trading is active")

	stock := &cobra.Command{
		Use:   "stock <symbol> <on|off>",
		Short: "Allow or halt trading of one stock",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch strings.ToLower(args[1]) {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("want on or off, got %q", args[1])
			}
			if !c.app.Trading.SetStockActive(cmd.Context(), strings.ToUpper(args[0]), on) {
				return fail(c.app.Trading.Err())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s trading %s\n", strings.ToUpper(args[0]), args[1])
			return nil
		},
	}

	cmd.AddCommand(settings, start, stop, reset, set, stock)
	return cmd
}

func (c *cli) printSettings(w io.Writer, s *models.TradingSettings) error {
	if s == nil {
		return errors.New("no settings")
	}
	if c.format != view.FormatTable {
		rows := []view.SettingsRow{view.NewSettingsRow(*s)}
		return view.Write(w, c.format, rows)
	}
	state := "stopped"
	if s.IsActive {
		state = "running"
	}
	_, err := fmt.Fprintf(w, "Trading: %s\nStart date: %s\nSpeed: x%s\nMarket date: %s\n",
		state, s.StartDate, s.SpeedFactor.String(), s.CurrentDate)
	return err
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream live market updates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			return c.app.Watch(cmd.Context(), func(u push.Update) {
				if c.format == view.FormatJSON {
					_ = enc.Encode(updateJSON(u))
					return
				}
				fmt.Fprintln(out, describeUpdate(u))
			})
		},
	}
}

func updateJSON(u push.Update) any {
	switch u.Kind {
	case push.UpdateStatus:
		return map[string]any{"event": push.EventTradingStatus, "data": u.Status}
	case push.UpdateSettings:
		return map[string]any{"event": push.EventTradingSettings, "data": u.Settings}
	default:
		return map[string]any{"event": "connection", "connected": u.Connected}
	}
}

func describeUpdate(u push.Update) string {
	switch u.Kind {
	case push.UpdateStatus:
		var sb strings.Builder
		fmt.Fprintf(&sb, "📅 %s", u.Status.CurrentDate)
		for _, q := range u.Status.StockPrices {
			fmt.Fprintf(&sb, "  %s %s", q.Symbol, q.Price)
		}
		return sb.String()
	case push.UpdateSettings:
		return fmt.Sprintf("⚙️ settings: active=%t speed=x%s start=%s",
			u.Settings.IsActive, u.Settings.SpeedFactor.String(), u.Settings.StartDate)
	default:
		if u.Connected {
			return "🟢 connected"
		}
		return "🔴 disconnected"
	}
}

func (c *cli) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell with slash commands and live updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			// Keep the push channel open for the whole session so prices stay live.
			sub, err := c.app.Push.Subscribe(ctx)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠️ live updates unavailable: %v\n", err)
			} else {
				defer sub.Unsubscribe()
				go func() {
					for range sub.Updates() {
					}
				}()
			}

			fmt.Fprintln(out, c.app.HandleCommand(ctx, "/open "+c.app.Path()))
			fmt.Fprint(out, "> ")

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			lines := scanLines(ctx, cmd.InOrStdin())

			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					line = strings.TrimSpace(line)
					if line == "exit" || line == "quit" || line == "/quit" {
						return nil
					}
					if line != "" {
						fmt.Fprintln(out, c.app.HandleCommand(ctx, line))
					}
					fmt.Fprint(out, "> ")
				}
			}
		},
	}
}

// scanLines feeds r line by line until EOF or until ctx is done.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
