package fakebackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// pushClient is one accepted Socket.IO connection.
type pushClient struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *pushClient) write(ctx context.Context, msg string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, []byte(msg))
}

type pushHub struct {
	mu      sync.Mutex
	clients map[*pushClient]struct{}
	refuse  string
	pongs   atomic.Int64
	accepts atomic.Int64
}

func newPushHub() *pushHub {
	return &pushHub{clients: make(map[*pushClient]struct{})}
}

func (h *pushHub) snapshot() []*pushClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*pushClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *pushHub) broadcast(event string, payload any) {
	msg, err := eventFrame(event, payload)
	if err != nil {
		return
	}
	for _, c := range h.snapshot() {
		_ = c.write(context.Background(), msg)
	}
}

func eventFrame(event string, payload any) (string, error) {
	raw, err := json.Marshal([]any{event, payload})
	if err != nil {
		return "", err
	}
	return "42" + string(raw), nil
}

func (h *pushHub) add(c *pushClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *pushHub) remove(c *pushClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// PushClients reports how many Socket.IO clients are connected.
func (b *Backend) PushClients() int {
	b.push.mu.Lock()
	defer b.push.mu.Unlock()
	return len(b.push.clients)
}

// PushAccepts reports how many websocket upgrades have been accepted in total.
func (b *Backend) PushAccepts() int {
	return int(b.push.accepts.Load())
}

// DropPushClients closes every push connection abruptly.
func (b *Backend) DropPushClients() {
	for _, c := range b.push.snapshot() {
		_ = c.conn.CloseNow()
	}
}

// KickPushClients sends a server-side namespace disconnect to every client.
func (b *Backend) KickPushClients() {
	for _, c := range b.push.snapshot() {
		_ = c.write(context.Background(), "41")
	}
}

// RefusePush makes subsequent handshakes fail with a connect error carrying msg.
// An empty msg accepts again.
func (b *Backend) RefusePush(msg string) {
	b.push.mu.Lock()
	b.push.refuse = msg
	b.push.mu.Unlock()
}

// Ping sends an engine ping to every client.
func (b *Backend) Ping() {
	for _, c := range b.push.snapshot() {
		_ = c.write(context.Background(), "2")
	}
}

// Pongs reports how many pongs clients have answered with.
func (b *Backend) Pongs() int {
	return int(b.push.pongs.Load())
}

func (b *Backend) handleSocket(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("transport") != "websocket" {
		writeError(w, http.StatusBadRequest, "Transport unknown")
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()
	b.push.accepts.Add(1)

	c := &pushClient{conn: conn}
	ctx := r.Context()

	sid := uuid.NewString()
	open, _ := json.Marshal(map[string]any{
		"sid":          sid,
		"upgrades":     []string{},
		"pingInterval": 25000,
		"pingTimeout":  20000,
		"maxPayload":   1000000,
	})
	if err := c.write(ctx, "0"+string(open)); err != nil {
		return
	}

	_, data, err := conn.Read(ctx)
	if err != nil || !strings.HasPrefix(string(data), "40") {
		return
	}

	b.push.mu.Lock()
	refuse := b.push.refuse
	b.push.mu.Unlock()
	if refuse != "" {
		msg, _ := json.Marshal(map[string]string{"message": refuse})
		_ = c.write(ctx, "44"+string(msg))
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	if err := c.write(ctx, fmt.Sprintf(`40{"sid":%q}`, uuid.NewString())); err != nil {
		return
	}

	b.mu.Lock()
	settings := b.settingsLocked()
	b.mu.Unlock()

	// Register before the greeting so no broadcast is lost in between.
	b.push.add(c)
	defer b.push.remove(c)

	if msg, err := eventFrame("tradingSettings", settings); err == nil {
		if err := c.write(ctx, msg); err != nil {
			return
		}
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		switch string(data) {
		case "3":
			b.push.pongs.Add(1)
		case "41", "1":
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}
