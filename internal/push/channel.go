package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trading_terminal/internal/models"
)

// Event names emitted by the backend.
const (
	EventTradingStatus   = "tradingStatus"
	EventTradingSettings = "tradingSettings"
)

// UpdateKind says which part of the live state an Update carries.
type UpdateKind int

const (
	UpdateStatus UpdateKind = iota
	UpdateSettings
	UpdateConnection
)

// Update is delivered to subscribers after the live state changed.
type Update struct {
	Kind      UpdateKind
	Status    models.TradingStatus   // UpdateStatus
	Settings  models.TradingSettings // UpdateSettings
	Connected bool                   // UpdateConnection
}

// Channel is the process-wide push connection and the live state it feeds:
// the latest trading status (market date and prices) and trading settings.
// Every event replaces the held value wholesale.
//
// The connection is opened by the first Subscribe (or an explicit Connect) and torn
// down by the last Unsubscribe (or Disconnect/Close).
type Channel struct {
	url          string
	httpClient   *http.Client
	log          *zap.SugaredLogger
	reconnect    bool
	backoff      time.Duration
	maxBackoff   time.Duration
	bufSize      int
	dialTimeout  time.Duration
	writeTimeout time.Duration

	// lifecycle serializes Connect, Disconnect and reconnect attempts.
	lifecycle  sync.Mutex
	lifeCtx    context.Context
	lifeCancel context.CancelFunc

	mu         sync.RWMutex
	conn       *websocket.Conn
	cancelLoop context.CancelFunc
	done       chan struct{}
	status     models.TradingStatus
	hasStatus  bool
	settings   models.TradingSettings
	hasSetting bool
	subs       map[string]*Subscription

	connected atomic.Bool
}

// Option customizes a Channel.
type Option func(*Channel)

// WithReconnect enables reconnecting with exponential backoff after the connection drops.
func WithReconnect(enabled bool) Option {
	return func(c *Channel) { c.reconnect = enabled }
}

// WithBackoff sets the first and the maximum delay between reconnect attempts.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Channel) {
		c.backoff = initial
		c.maxBackoff = max
	}
}

// WithBufferSize sets the per-subscriber update buffer.
func WithBufferSize(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Channel) { c.log = l }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Channel) { c.httpClient = hc }
}

// NewChannel returns a disconnected channel for the backend at baseURL.
func NewChannel(baseURL string, opts ...Option) *Channel {
	c := &Channel{
		url:          baseURL,
		log:          zap.S(),
		backoff:      time.Second,
		maxBackoff:   60 * time.Second,
		bufSize:      16,
		dialTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
		subs:         make(map[string]*Subscription),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect opens the connection. It is a no-op when already connected.
func (c *Channel) Connect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.hasConn() {
		return nil
	}
	if c.lifeCtx == nil || c.lifeCtx.Err() != nil {
		c.lifeCtx, c.lifeCancel = context.WithCancel(context.Background())
	}
	return c.start(ctx, c.lifeCtx)
}

// start dials and launches the read loop. lifecycle must be held.
func (c *Channel) start(ctx context.Context, life context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	conn, hs, err := dial(dctx, c.url, c.httpClient)
	if err != nil {
		c.log.Warnw("push connect failed", "url", c.url, "error", err)
		return err
	}

	loopCtx, cancelLoop := context.WithCancel(life)
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.cancelLoop = cancelLoop
	c.done = done
	c.mu.Unlock()

	c.connected.Store(true)
	c.log.Infow("push connected", "url", c.url, "sid", hs.SID)
	c.publish(Update{Kind: UpdateConnection, Connected: true})

	go c.readLoop(loopCtx, life, conn, hs, done)
	return nil
}

// Disconnect closes the connection and stops any reconnect attempts.
// The last received status and settings stay readable.
func (c *Channel) Disconnect() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.disconnect()
}

// disconnectIfIdle tears the connection down only if no subscriber joined
// since the last one left.
func (c *Channel) disconnectIfIdle() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.Subscribers() > 0 {
		return
	}
	c.disconnect()
}

// disconnect does the teardown. lifecycle must be held.
func (c *Channel) disconnect() {
	c.mu.Lock()
	conn, cancelLoop, done := c.conn, c.cancelLoop, c.done
	c.conn, c.cancelLoop, c.done = nil, nil, nil
	c.mu.Unlock()

	if conn != nil {
		wctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
		_ = conn.Write(wctx, websocket.MessageText, []byte{engineMessage, socketDisconnect})
		cancel()
	}

	// Stops the read loop and any pending reconnect.
	if c.lifeCancel != nil {
		c.lifeCancel()
		c.lifeCancel = nil
		c.lifeCtx = nil
	}

	if conn != nil {
		cancelLoop()
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
		<-done
	}

	if c.connected.Swap(false) {
		c.log.Infow("push disconnected", "url", c.url)
		c.publish(Update{Kind: UpdateConnection, Connected: false})
	}
}

// Close disconnects and drops every subscriber.
func (c *Channel) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	for _, s := range subs {
		s.closeLocked()
	}
	c.mu.Unlock()
	c.Disconnect()
}

// IsConnected reports whether the namespace handshake completed and the socket is alive.
func (c *Channel) IsConnected() bool { return c.connected.Load() }

// Status returns the latest trading status. ok is false until the first event arrives.
func (c *Channel) Status() (status models.TradingStatus, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStatus(c.status), c.hasStatus
}

// CurrentDate is the simulated market date of the latest status, or "".
func (c *Channel) CurrentDate() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status.CurrentDate
}

// StockPrices returns the live prices of the latest status.
func (c *Channel) StockPrices() []models.StockQuote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStatus(c.status).StockPrices
}

// Settings returns the latest pushed trading settings.
func (c *Channel) Settings() (models.TradingSettings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings, c.hasSetting
}

// Subscribe registers for updates, connecting first if needed.
// If the connection cannot be opened the subscription is not kept.
func (c *Channel) Subscribe(ctx context.Context) (*Subscription, error) {
	sub := &Subscription{
		id:      uuid.NewString(),
		ch:      make(chan Update, c.bufSize),
		channel: c,
	}

	c.mu.Lock()
	c.subs[sub.id] = sub
	c.mu.Unlock()

	if err := c.Connect(ctx); err != nil {
		c.mu.Lock()
		delete(c.subs, sub.id)
		sub.closeLocked()
		c.mu.Unlock()
		return nil, err
	}
	return sub, nil
}

// Subscribers returns the number of live subscriptions.
func (c *Channel) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

func (c *Channel) hasConn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// publish fans an update out without blocking; a full subscriber misses it.
func (c *Channel) publish(u Update) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, s := range c.subs {
		select {
		case s.ch <- u:
		default:
			c.log.Warnw("push subscriber buffer full, dropping update", "subscriber", id, "kind", u.Kind)
		}
	}
}

func (c *Channel) readLoop(ctx, life context.Context, conn *websocket.Conn, hs handshake, done chan struct{}) {
	defer close(done)

	err := c.consume(ctx, conn, hs)
	if ctx.Err() != nil {
		// Disconnect owns the teardown.
		return
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn, c.cancelLoop, c.done = nil, nil, nil
	}
	c.mu.Unlock()
	conn.CloseNow()

	if c.connected.Swap(false) {
		c.log.Warnw("push connection lost", "url", c.url, "error", err)
		c.publish(Update{Kind: UpdateConnection, Connected: false})
	}

	if c.reconnect && !errors.Is(err, errServerDisconnect) {
		go c.reconnectLoop(life)
	}
}

// consume reads packets until the connection fails or the server says goodbye.
func (c *Channel) consume(ctx context.Context, conn *websocket.Conn, hs handshake) error {
	// No ping within interval+timeout means the server is gone.
	heartbeat := time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond

	for {
		rctx, cancel := ctx, context.CancelFunc(func() {})
		if heartbeat > 0 {
			rctx, cancel = context.WithTimeout(ctx, heartbeat)
		}
		p, err := readPacket(rctx, conn)
		cancel()
		if err != nil {
			c.log.Debugw("push read failed", "error", err)
			return err
		}

		switch p.Engine {
		case enginePing:
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, []byte{enginePong})
			cancel()
			if err != nil {
				return err
			}
		case engineClose:
			return errServerDisconnect
		case engineMessage:
			switch p.Socket {
			case socketDisconnect:
				return errServerDisconnect
			case socketEvent:
				c.dispatch(p.Event, p.Data)
			}
		}
	}
}

func (c *Channel) dispatch(event string, data json.RawMessage) {
	switch event {
	case EventTradingStatus:
		var st models.TradingStatus
		if err := json.Unmarshal(data, &st); err != nil {
			c.log.Warnw("bad tradingStatus payload", "error", err)
			return
		}
		c.mu.Lock()
		c.status = st
		c.hasStatus = true
		c.mu.Unlock()
		c.log.Debugw("trading status", "date", st.CurrentDate, "prices", len(st.StockPrices))
		c.publish(Update{Kind: UpdateStatus, Status: copyStatus(st)})
	case EventTradingSettings:
		var s models.TradingSettings
		if err := json.Unmarshal(data, &s); err != nil {
			c.log.Warnw("bad tradingSettings payload", "error", err)
			return
		}
		c.mu.Lock()
		c.settings = s
		c.hasSetting = true
		c.mu.Unlock()
		c.publish(Update{Kind: UpdateSettings, Settings: s})
	default:
		c.log.Debugw("ignoring push event", "event", event)
	}
}

// reconnectLoop retries with exponential backoff until connected or life is canceled.
func (c *Channel) reconnectLoop(life context.Context) {
	backoff := c.backoff

	for {
		select {
		case <-life.Done():
			return
		case <-time.After(backoff):
		}

		c.lifecycle.Lock()
		if life.Err() != nil || c.hasConn() {
			c.lifecycle.Unlock()
			return
		}
		c.log.Infow("reconnecting push channel", "url", c.url, "backoff", backoff)
		err := c.start(life, life)
		c.lifecycle.Unlock()
		if err == nil {
			return
		}

		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

func copyStatus(s models.TradingStatus) models.TradingStatus {
	if s.StockPrices != nil {
		s.StockPrices = append([]models.StockQuote(nil), s.StockPrices...)
	}
	return s
}

// Subscription receives live updates until Unsubscribe.
type Subscription struct {
	id      string
	ch      chan Update
	channel *Channel
	once    sync.Once
	closed  bool
}

// Updates is closed after Unsubscribe or Channel.Close.
func (s *Subscription) Updates() <-chan Update { return s.ch }

// Unsubscribe stops delivery. The last subscriber leaving disconnects the channel.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.channel.release(s) {
			s.channel.disconnectIfIdle()
		}
	})
}

// release drops s and reports whether it was the last subscriber.
func (c *Channel) release(s *Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, registered := c.subs[s.id]
	delete(c.subs, s.id)
	s.closeLocked()
	return registered && len(c.subs) == 0
}

// closeLocked closes the update channel once. Channel.mu must be held.
func (s *Subscription) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
