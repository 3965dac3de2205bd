package fakebackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Router exposes the REST surface and the Socket.IO endpoint.
func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.countCalls)

	r.Get("/brokers", b.handleListBrokers)
	r.Post("/brokers", b.handleCreateBroker)
	r.Get("/brokers/{id}", b.handleGetBroker)
	r.Patch("/brokers/{id}", b.handleUpdateBroker)
	r.Delete("/brokers/{id}", b.handleDeleteBroker)
	r.Post("/brokers/{id}/buy", b.handleTrade(b.buy))
	r.Post("/brokers/{id}/sell", b.handleTrade(b.sell))
	r.Get("/brokers/{id}/portfolio", b.handlePortfolio)

	r.Get("/stocks", b.handleListStocks)
	r.Get("/stocks/{symbol}", b.handleGetStock)
	r.Patch("/stocks/{symbol}/trading-status", b.handleStockStatus)

	r.Get("/trading/settings", b.handleGetSettings)
	r.Patch("/trading/settings", b.handleUpdateSettings)
	r.Post("/trading/start", b.handleStart)
	r.Post("/trading/stop", b.handleStop)
	r.Post("/trading/reset", b.handleReset)

	r.Get("/socket.io/", b.handleSocket)
	return r
}

// countCalls records hits per route pattern after routing.
func (b *Backend) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		b.mu.Lock()
		b.calls[r.Method+" "+pattern]++
		b.mu.Unlock()
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg any) {
	writeJSON(w, status, errorDTO{StatusCode: status, Message: msg, Error: http.StatusText(status)})
}

func writeDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBrokerNotFound) || errors.Is(err, errStockNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func (b *Backend) handleListBrokers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := []brokerDTO{}
	for _, id := range b.brokerOrder {
		out = append(out, b.brokerDTOLocked(b.brokers[id]))
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleGetBroker(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	br, ok := b.brokers[chi.URLParam(r, "id")]
	var out brokerDTO
	if ok {
		out = b.brokerDTOLocked(br)
	}
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Broker not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleCreateBroker(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name    string           `json:"name"`
		Balance *decimal.Decimal `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, []string{"name should not be empty"})
		return
	}
	balance := decimal.NewFromInt(100000)
	if in.Balance != nil {
		balance = *in.Balance
	}

	b.mu.Lock()
	id := b.addBrokerLocked(in.Name, balance)
	out := b.brokerDTOLocked(b.brokers[id])
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (b *Backend) handleUpdateBroker(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name    *string          `json:"name"`
		Balance *decimal.Decimal `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, []string{"invalid body"})
		return
	}

	b.mu.Lock()
	br, ok := b.brokers[chi.URLParam(r, "id")]
	var out brokerDTO
	if ok {
		if in.Name != nil {
			br.name = *in.Name
		}
		if in.Balance != nil {
			br.balance = *in.Balance
		}
		br.updatedAt = time.Now().UTC()
		out = b.brokerDTOLocked(br)
	}
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Broker not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleDeleteBroker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	_, ok := b.brokers[id]
	if ok {
		delete(b.brokers, id)
		for i, v := range b.brokerOrder {
			if v == id {
				b.brokerOrder = append(b.brokerOrder[:i], b.brokerOrder[i+1:]...)
				break
			}
		}
	}
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Broker not found")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleTrade(fn func(id, symbol string, qty int64) (brokerDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Symbol   string `json:"symbol"`
			Quantity int64  `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, []string{"invalid body"})
			return
		}
		var problems []string
		if in.Symbol == "" {
			problems = append(problems, "symbol should not be empty")
		}
		if in.Quantity <= 0 {
			problems = append(problems, "quantity must be a positive number")
		}
		if len(problems) > 0 {
			writeError(w, http.StatusBadRequest, problems)
			return
		}

		b.mu.Lock()
		delay := b.tradeDelay
		b.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}

		out, err := fn(chi.URLParam(r, "id"), in.Symbol, in.Quantity)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func (b *Backend) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	out, err := b.portfolio(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleListStocks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := []stockDTO{}
	for _, sym := range b.stockOrder {
		out = append(out, b.stockDTOLocked(b.stocks[sym]))
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleGetStock(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	s, ok := b.stocks[chi.URLParam(r, "symbol")]
	var out stockDTO
	if ok {
		out = b.stockDTOLocked(s)
	}
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Stock not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleStockStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IsActive *bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.IsActive == nil {
		writeError(w, http.StatusBadRequest, []string{"isActive must be a boolean value"})
		return
	}
	b.mu.Lock()
	s, ok := b.stocks[chi.URLParam(r, "symbol")]
	var out stockDTO
	if ok {
		s.active = *in.IsActive
		out = b.stockDTOLocked(s)
	}
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Stock not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := b.settingsLocked()
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in struct {
		StartDate   *string          `json:"startDate"`
		SpeedFactor *decimal.Decimal `json:"speedFactor"`
		IsActive    *bool            `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, []string{"invalid body"})
		return
	}
	if in.SpeedFactor != nil && !in.SpeedFactor.IsPositive() {
		writeError(w, http.StatusBadRequest, []string{"speedFactor must be positive"})
		return
	}

	b.mu.Lock()
	if in.StartDate != nil {
		b.startDate = *in.StartDate
	}
	if in.SpeedFactor != nil {
		b.speedFactor = *in.SpeedFactor
	}
	if in.IsActive != nil {
		b.active = *in.IsActive
	}
	out := b.settingsLocked()
	b.mu.Unlock()

	b.push.broadcast("tradingSettings", out)
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleStart(w http.ResponseWriter, r *http.Request) {
	b.setActive(w, true)
}

func (b *Backend) handleStop(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.active = false
	settings := b.settingsLocked()
	b.mu.Unlock()
	b.push.broadcast("tradingSettings", settings)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Trading stopped"})
}

func (b *Backend) handleReset(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.currentDate = b.startDate
	b.mu.Unlock()
	b.setActive(w, false)
}

func (b *Backend) setActive(w http.ResponseWriter, active bool) {
	b.mu.Lock()
	b.active = active
	status := b.statusLocked()
	settings := b.settingsLocked()
	b.mu.Unlock()

	b.push.broadcast("tradingSettings", settings)
	b.push.broadcast("tradingStatus", status)
	writeJSON(w, http.StatusCreated, status)
}
