// Package fakebackend is an in-memory stand-in for the trading backend, used by tests.
// It speaks the same REST surface and a minimal Socket.IO push endpoint.
package fakebackend

import (
	"errors"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	errBrokerNotFound    = errors.New("Broker not found")
	errStockNotFound     = errors.New("Stock not found")
	errInsufficientFunds = errors.New("Insufficient funds")
	errNotEnoughStocks   = errors.New("Not enough stocks to sell")
	errTradingInactive   = errors.New("Trading is not active for this stock")
)

type holding struct {
	quantity int64
	avgPrice decimal.Decimal
}

type broker struct {
	id        string
	name      string
	balance   decimal.Decimal
	holdings  map[string]*holding
	order     []string // symbols in purchase order
	createdAt time.Time
	updatedAt time.Time
}

type stock struct {
	symbol  string
	company string
	active  bool
	price   decimal.Decimal
	history []pricePoint
}

type pricePoint struct {
	date string
	open decimal.Decimal
}

// Backend holds the simulated market. All methods are safe for concurrent use.
type Backend struct {
	mu          sync.Mutex
	brokers     map[string]*broker
	brokerOrder []string
	stocks      map[string]*stock
	stockOrder  []string

	startDate   string
	currentDate string
	speedFactor decimal.Decimal
	active      bool

	// Hooks for tests.
	tradeDelay time.Duration
	calls      map[string]int

	push *pushHub
}

// New returns an empty backend with a stopped clock at 2024-01-02.
func New() *Backend {
	return &Backend{
		brokers:     make(map[string]*broker),
		stocks:      make(map[string]*stock),
		startDate:   "2024-01-02",
		currentDate: "2024-01-02",
		speedFactor: decimal.NewFromInt(1),
		calls:       make(map[string]int),
		push:        newPushHub(),
	}
}

// Serve starts an httptest server for the backend. Callers Close it.
func (b *Backend) Serve() *httptest.Server {
	return httptest.NewServer(b.Router())
}

// AddBroker registers a broker and returns its id.
func (b *Backend) AddBroker(name string, balance float64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addBrokerLocked(name, decimal.NewFromFloat(balance))
}

func (b *Backend) addBrokerLocked(name string, balance decimal.Decimal) string {
	now := time.Now().UTC()
	id := uuid.NewString()
	b.brokers[id] = &broker{
		id:        id,
		name:      name,
		balance:   balance,
		holdings:  make(map[string]*holding),
		createdAt: now,
		updatedAt: now,
	}
	b.brokerOrder = append(b.brokerOrder, id)
	return id
}

// AddStock lists a stock at price.
func (b *Backend) AddStock(symbol, company string, price float64, active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := decimal.NewFromFloat(price)
	b.stocks[symbol] = &stock{
		symbol:  symbol,
		company: company,
		active:  active,
		price:   p,
		history: []pricePoint{{date: b.currentDate, open: p}},
	}
	b.stockOrder = append(b.stockOrder, symbol)
}

// SetPrice moves a stock's current price without emitting anything.
func (b *Backend) SetPrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.stocks[symbol]; ok {
		s.price = decimal.NewFromFloat(price)
	}
}

// Tick advances the simulated date, applies new prices and pushes a tradingStatus event.
func (b *Backend) Tick(date string, prices map[string]float64) {
	b.mu.Lock()
	b.currentDate = date
	for sym, p := range prices {
		if s, ok := b.stocks[sym]; ok {
			s.price = decimal.NewFromFloat(p)
			s.history = append(s.history, pricePoint{date: date, open: s.price})
		}
	}
	status := b.statusLocked()
	b.mu.Unlock()

	b.push.broadcast("tradingStatus", status)
}

// SetTradeDelay makes buy and sell handlers sleep, to widen race windows in tests.
func (b *Backend) SetTradeDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tradeDelay = d
}

// Calls returns how many times a route was hit, keyed like "POST /brokers/{id}/buy".
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// Balance returns a broker's cash.
func (b *Backend) Balance(id string) (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	br, ok := b.brokers[id]
	if !ok {
		return decimal.Zero, false
	}
	return br.balance, true
}

func (b *Backend) buy(id, symbol string, qty int64) (brokerDTO, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	br, ok := b.brokers[id]
	if !ok {
		return brokerDTO{}, errBrokerNotFound
	}
	st, ok := b.stocks[symbol]
	if !ok {
		return brokerDTO{}, errStockNotFound
	}
	if !st.active {
		return brokerDTO{}, errTradingInactive
	}

	q := decimal.NewFromInt(qty)
	cost := st.price.Mul(q)
	if cost.GreaterThan(br.balance) {
		return brokerDTO{}, errInsufficientFunds
	}

	h, ok := br.holdings[symbol]
	if !ok {
		h = &holding{}
		br.holdings[symbol] = h
		br.order = append(br.order, symbol)
	}
	// Weighted average cost basis.
	held := decimal.NewFromInt(h.quantity)
	h.avgPrice = h.avgPrice.Mul(held).Add(cost).Div(held.Add(q))
	h.quantity += qty
	br.balance = br.balance.Sub(cost)
	br.updatedAt = time.Now().UTC()

	return b.brokerDTOLocked(br), nil
}

func (b *Backend) sell(id, symbol string, qty int64) (brokerDTO, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	br, ok := b.brokers[id]
	if !ok {
		return brokerDTO{}, errBrokerNotFound
	}
	st, ok := b.stocks[symbol]
	if !ok {
		return brokerDTO{}, errStockNotFound
	}
	if !st.active {
		return brokerDTO{}, errTradingInactive
	}
	h, ok := br.holdings[symbol]
	if !ok || h.quantity < qty {
		return brokerDTO{}, errNotEnoughStocks
	}

	h.quantity -= qty
	if h.quantity == 0 {
		delete(br.holdings, symbol)
		for i, s := range br.order {
			if s == symbol {
				br.order = append(br.order[:i], br.order[i+1:]...)
				break
			}
		}
	}
	br.balance = br.balance.Add(st.price.Mul(decimal.NewFromInt(qty)))
	br.updatedAt = time.Now().UTC()

	return b.brokerDTOLocked(br), nil
}

func (b *Backend) portfolio(id string) (portfolioDTO, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	br, ok := b.brokers[id]
	if !ok {
		return portfolioDTO{}, errBrokerNotFound
	}

	out := portfolioDTO{Broker: b.brokerDTOLocked(br), Portfolio: []portfolioItemDTO{}}
	stocksValue, invested := decimal.Zero, decimal.Zero
	for _, sym := range br.order {
		h := br.holdings[sym]
		st := b.stocks[sym]
		q := decimal.NewFromInt(h.quantity)
		value := st.price.Mul(q)
		cost := h.avgPrice.Mul(q)
		pl := st.price.Sub(h.avgPrice).Mul(q)
		pct := decimal.Zero
		if !h.avgPrice.IsZero() {
			pct = st.price.Sub(h.avgPrice).Div(h.avgPrice).Mul(decimal.NewFromInt(100))
		}
		out.Portfolio = append(out.Portfolio, portfolioItemDTO{
			Symbol:            sym,
			CompanyName:       st.company,
			Quantity:          h.quantity,
			AveragePrice:      h.avgPrice.InexactFloat64(),
			CurrentPrice:      st.price.InexactFloat64(),
			TotalValue:        value.InexactFloat64(),
			ProfitLoss:        pl.InexactFloat64(),
			ProfitLossPercent: pct.Round(2).InexactFloat64(),
		})
		stocksValue = stocksValue.Add(value)
		invested = invested.Add(cost)
	}
	out.TotalStocksValue = stocksValue.InexactFloat64()
	out.TotalBalance = br.balance.Add(stocksValue).InexactFloat64()
	out.TotalInvested = invested.InexactFloat64()
	out.TotalProfitLoss = stocksValue.Sub(invested).InexactFloat64()
	return out, nil
}

func (b *Backend) brokerDTOLocked(br *broker) brokerDTO {
	out := brokerDTO{
		ID:        br.id,
		Name:      br.name,
		Balance:   br.balance.InexactFloat64(),
		Stocks:    []brokerStockDTO{},
		CreatedAt: br.createdAt,
		UpdatedAt: br.updatedAt,
	}
	for _, sym := range br.order {
		h := br.holdings[sym]
		out.Stocks = append(out.Stocks, brokerStockDTO{
			Symbol:       sym,
			Quantity:     h.quantity,
			AveragePrice: h.avgPrice.InexactFloat64(),
		})
	}
	return out
}

func (b *Backend) stockDTOLocked(s *stock) stockDTO {
	out := stockDTO{
		Symbol:         s.symbol,
		CompanyName:    s.company,
		IsActive:       s.active,
		CurrentPrice:   money(s.price),
		HistoricalData: []stockPriceDTO{},
	}
	for _, p := range s.history {
		out.HistoricalData = append(out.HistoricalData, stockPriceDTO{Date: p.date, Open: money(p.open)})
	}
	return out
}

func (b *Backend) statusLocked() statusDTO {
	out := statusDTO{IsActive: b.active, CurrentDate: b.currentDate, StockPrices: []quoteDTO{}}
	syms := append([]string(nil), b.stockOrder...)
	sort.Strings(syms)
	for _, sym := range syms {
		out.StockPrices = append(out.StockPrices, quoteDTO{Symbol: sym, Price: money(b.stocks[sym].price)})
	}
	return out
}

func (b *Backend) settingsLocked() settingsDTO {
	return settingsDTO{
		StartDate:   b.startDate,
		SpeedFactor: b.speedFactor.InexactFloat64(),
		IsActive:    b.active,
		CurrentDate: b.currentDate,
	}
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
