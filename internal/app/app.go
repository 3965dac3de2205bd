// Package app wires the stores, the push channel and the session into the terminal's screens.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trading_terminal/internal/api"
	"trading_terminal/internal/config"
	"trading_terminal/internal/push"
	"trading_terminal/internal/route"
	"trading_terminal/internal/session"
	"trading_terminal/internal/store"
	"trading_terminal/internal/view"
)

type App struct {
	Client  *api.Client
	Brokers *store.BrokerStore
	Stocks  *store.StockStore
	Trading *store.TradingStore
	Push    *push.Channel

	sessions *session.Store
	log      *zap.SugaredLogger
	commands []CommandDoc

	mu      sync.RWMutex
	session session.State
	path    string
}

func New(cfg *config.Config, log *zap.SugaredLogger) *App {
	if log == nil {
		log = zap.S()
	}
	client := api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithLogger(log.Named("api")),
	)
	channel := push.NewChannel(cfg.PushURL,
		push.WithReconnect(cfg.PushReconnect),
		push.WithBufferSize(cfg.PushBuffer),
		push.WithLogger(log.Named("push")),
	)

	a := &App{
		Client:   client,
		Brokers:  store.NewBrokerStore(client, log.Named("brokers")),
		Stocks:   store.NewStockStore(client, log.Named("stocks")),
		Trading:  store.NewTradingStore(client, log.Named("trading")),
		Push:     channel,
		sessions: session.NewStore(cfg.SessionFile, log),
		log:      log,
		path:     "/",
		commands: []CommandDoc{
			{"/help", "List commands", "/help"},
			{"/brokers", "List broker accounts", "/brokers"},
			{"/login", "Log in as a broker", "/login <broker-id>"},
			{"/admin", "Open the administration panel", "/admin"},
			{"/open", "Render a screen by path", "/open /broker/<id>"},
			{"/stocks", "List stocks with live prices", "/stocks"},
			{"/price", "Live price of one stock", "/price <symbol>"},
			{"/portfolio", "Current broker's portfolio", "/portfolio"},
			{"/buy", "Buy shares for the current broker", "/buy <symbol> <qty>"},
			{"/sell", "Sell shares for the current broker", "/sell <symbol> <qty>"},
			{"/status", "Market date and push connection", "/status"},
			{"/start", "Start the simulation", "/start"},
			{"/stop", "Stop the simulation", "/stop"},
			{"/reset", "Reset the simulation clock", "/reset"},
			{"/speed", "Set the simulation speed factor", "/speed <factor>"},
			{"/logout", "Forget the current login", "/logout"},
		},
	}

	st, err := a.sessions.Load()
	if err != nil {
		log.Warnw("could not load session, starting logged out", "file", cfg.SessionFile, "error", err)
	}
	a.session = st
	if p, ok := a.homePath(st); ok {
		a.path = p
	}
	return a
}

// Close tears down the push connection.
func (a *App) Close() {
	a.Push.Close()
}

// Path is the screen the app is on.
func (a *App) Path() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.path
}

// Session returns the current login.
func (a *App) Session() session.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

func (a *App) homePath(st session.State) (string, bool) {
	switch {
	case st.Role == session.RoleAdmin:
		return "/admin", true
	case st.Role == session.RoleBroker && st.BrokerID != "":
		return route.BrokerPath(st.BrokerID), true
	default:
		return "", false
	}
}

// Login checks that the broker exists, remembers it and returns the dashboard path.
func (a *App) Login(ctx context.Context, brokerID string) (string, error) {
	if !a.Brokers.FetchBroker(ctx, brokerID) {
		return "", failure(a.Brokers.Err())
	}
	st := session.State{Role: session.RoleBroker, BrokerID: brokerID, LoggedInAt: time.Now().UTC()}
	return a.enter(st)
}

// LoginAdmin loads the broker list for the admin screen and returns its path.
func (a *App) LoginAdmin(ctx context.Context) (string, error) {
	if !a.Brokers.FetchBrokers(ctx) {
		return "", failure(a.Brokers.Err())
	}
	st := session.State{Role: session.RoleAdmin, LoggedInAt: time.Now().UTC()}
	return a.enter(st)
}

func (a *App) enter(st session.State) (string, error) {
	if err := a.sessions.Save(st); err != nil {
		a.log.Warnw("could not save session", "error", err)
	}
	path, _ := a.homePath(st)

	a.mu.Lock()
	a.session = st
	a.path = path
	a.mu.Unlock()

	a.log.Infow("logged in", "role", st.Role, "broker", st.BrokerID, "path", path)
	return path, nil
}

// Logout forgets the login and returns to the broker selection.
func (a *App) Logout() error {
	a.mu.Lock()
	a.session = session.State{}
	a.path = "/"
	a.mu.Unlock()
	return a.sessions.Clear()
}

// Open loads the data for the screen at path and renders it to w.
func (a *App) Open(ctx context.Context, path string, w io.Writer) error {
	m, err := route.Resolve(path)
	if err != nil {
		return err
	}

	switch m.Name {
	case route.Login:
		a.Brokers.FetchBrokers(ctx)
		err = view.RenderLogin(w, view.LoginScreen{
			Brokers: a.Brokers.Brokers(),
			Error:   message(a.Brokers.Err()),
		})
	case route.Broker:
		err = view.RenderBroker(w, a.brokerScreen(ctx, m.Params["id"]))
	case route.Admin:
		err = view.RenderAdmin(w, a.adminScreen(ctx))
	}
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.path = path
	a.mu.Unlock()
	return nil
}

// brokerScreen fetches the portfolio and the stock list concurrently.
func (a *App) brokerScreen(ctx context.Context, id string) view.BrokerScreen {
	var g errgroup.Group
	g.Go(func() error {
		if !a.Brokers.FetchPortfolio(ctx, id) {
			return failure(a.Brokers.Err())
		}
		return nil
	})
	g.Go(func() error {
		if !a.Stocks.FetchStocks(ctx) {
			return failure(a.Stocks.Err())
		}
		return nil
	})
	err := g.Wait()

	s := view.BrokerScreen{
		Broker:    a.Brokers.Current(),
		Stocks:    a.Stocks.Stocks(),
		Connected: a.Push.IsConnected(),
	}
	if p := a.Brokers.Portfolio(); p != nil && p.Broker.ID == id {
		s.Portfolio = p
	}
	if s.Broker != nil && s.Broker.ID != id {
		s.Broker = nil
	}
	if st, ok := a.Push.Status(); ok {
		s.Live = &st
	}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// adminScreen fetches brokers and settings concurrently. Pushed settings win over fetched ones.
func (a *App) adminScreen(ctx context.Context) view.AdminScreen {
	var g errgroup.Group
	g.Go(func() error {
		if !a.Brokers.FetchBrokers(ctx) {
			return failure(a.Brokers.Err())
		}
		return nil
	})
	g.Go(func() error {
		if !a.Trading.FetchSettings(ctx) {
			return failure(a.Trading.Err())
		}
		return nil
	})
	err := g.Wait()

	s := view.AdminScreen{
		Brokers:   a.Brokers.Brokers(),
		Settings:  a.Trading.Settings(),
		Connected: a.Push.IsConnected(),
	}
	if live, ok := a.Push.Settings(); ok {
		s.Settings = &live
	}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// Watch subscribes to the push channel and calls fn for every update until ctx ends
// or the subscription is closed.
func (a *App) Watch(ctx context.Context, fn func(push.Update)) error {
	sub, err := a.Push.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to live updates: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			fn(u)
		}
	}
}

// ErrStockInactive refuses a trade on a stock the simulation has switched off.
var ErrStockInactive = errors.New("Trading is not active for this stock")

// CheckTradable fetches the stock and refuses it when trading is switched off,
// so buy and sell never reach the server for an inactive symbol.
func (a *App) CheckTradable(ctx context.Context, symbol string) error {
	if !a.Stocks.FetchStock(ctx, symbol) {
		return failure(a.Stocks.Err())
	}
	if s := a.Stocks.Current(); s != nil && !s.IsActive {
		a.log.Infow("trade refused, stock inactive", "symbol", symbol)
		return ErrStockInactive
	}
	return nil
}

// failure turns a store error slot into an error, even when the slot was already overwritten.
func failure(f *store.Failure) error {
	if f == nil {
		return errors.New("request failed")
	}
	return f
}

func message(f *store.Failure) string {
	if f == nil {
		return ""
	}
	return f.Message
}
