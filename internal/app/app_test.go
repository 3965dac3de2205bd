package app

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading_terminal/internal/config"
	"trading_terminal/internal/fakebackend"
	"trading_terminal/internal/push"
	"trading_terminal/internal/session"
)

func newTestApp(t *testing.T) (*App, *fakebackend.Backend) {
	t.Helper()
	b := fakebackend.New()
	b.AddStock("AAPL", "Apple Inc.", 150, true)
	b.AddStock("TSLA", "Tesla", 200, true)
	srv := b.Serve()
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		APIBaseURL:  srv.URL,
		PushURL:     srv.URL,
		PushBuffer:  16,
		SessionFile: filepath.Join(t.TempDir(), "session.json"),
	}
	a := New(cfg, zap.NewNop().Sugar())
	t.Cleanup(a.Close)
	return a, b
}

func TestLogin_NavigatesToBrokerDashboard(t *testing.T) {
	a, b := newTestApp(t)
	id := b.AddBroker("Alice", 10000)

	path, err := a.Login(context.Background(), id)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^/broker/[^/]+$`), path)
	require.Equal(t, "/broker/"+id, path)
	require.Equal(t, path, a.Path())

	st := a.Session()
	require.Equal(t, session.RoleBroker, st.Role)
	require.Equal(t, id, st.BrokerID)
}

func TestLogin_UnknownBroker(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := a.Login(context.Background(), "missing")
	require.EqualError(t, err, "Broker not found")
	require.Equal(t, "/", a.Path())
	require.False(t, a.Session().LoggedIn())
}

func TestLoginAdmin_ListsBrokers(t *testing.T) {
	a, b := newTestApp(t)
	b.AddBroker("Alice", 10000)
	b.AddBroker("Bob", 5000)

	path, err := a.LoginAdmin(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/admin", path)
	require.GreaterOrEqual(t, len(a.Brokers.Brokers()), 1)

	var sb strings.Builder
	require.NoError(t, a.Open(context.Background(), path, &sb))
	require.Contains(t, sb.String(), "Alice")
	require.Contains(t, sb.String(), "Bob")
}

func TestSessionSurvivesRestart(t *testing.T) {
	a, b := newTestApp(t)
	id := b.AddBroker("Alice", 10000)
	_, err := a.Login(context.Background(), id)
	require.NoError(t, err)

	cfg := &config.Config{APIBaseURL: a.Client.BaseURL(), PushURL: a.Client.BaseURL(), PushBuffer: 16, SessionFile: a.sessions.Path()}
	again := New(cfg, zap.NewNop().Sugar())
	defer again.Close()
	require.Equal(t, "/broker/"+id, again.Path())

	require.NoError(t, again.Logout())
	require.Equal(t, "/", again.Path())
}

func TestOpen_BrokerDashboard(t *testing.T) {
	a, b := newTestApp(t)
	id := b.AddBroker("Alice", 10000)
	ctx := context.Background()

	require.True(t, a.Brokers.BuyStock(ctx, id, "AAPL", 2))

	var sb strings.Builder
	require.NoError(t, a.Open(ctx, "/broker/"+id, &sb))
	out := sb.String()
	require.Contains(t, out, "Alice")
	require.Contains(t, out, "Cash: $9700.00")
	require.Contains(t, out, "Apple Inc.")
	require.Contains(t, out, "Tesla")
	require.Contains(t, out, "+$0.00")

	sb.Reset()
	require.NoError(t, a.Open(ctx, "/broker/nope", &sb))
	require.Contains(t, sb.String(), "Broker not found")

	require.Error(t, a.Open(ctx, "/nowhere", &sb))
}

func TestHandleCommand_TradeFlow(t *testing.T) {
	a, b := newTestApp(t)
	id := b.AddBroker("Alice", 1000)
	ctx := context.Background()

	require.Contains(t, a.HandleCommand(ctx, "/buy AAPL 1"), "Not logged in")

	out := a.HandleCommand(ctx, "/login "+id)
	require.Contains(t, out, "/broker/"+id)

	out = a.HandleCommand(ctx, "/buy aapl 2")
	require.Contains(t, out, "Bought 2 AAPL")
	require.Contains(t, out, "Cash: $700.00")

	out = a.HandleCommand(ctx, "/buy TSLA 100")
	require.Contains(t, out, "Insufficient funds")
	bal, _ := b.Balance(id)
	require.Equal(t, "700", bal.String())

	require.Contains(t, a.HandleCommand(ctx, "/buy TSLA x"), "Invalid quantity")
	require.Contains(t, a.HandleCommand(ctx, "/buy TSLA 0"), "quantity must be a positive number")

	out = a.HandleCommand(ctx, "/sell AAPL 1")
	require.Contains(t, out, "Sold 1 AAPL")
	require.Contains(t, out, "Cash: $850.00")

	require.Contains(t, a.HandleCommand(ctx, "/portfolio"), "AAPL")
}

func TestHandleCommand_InactiveStockIsNotTraded(t *testing.T) {
	a, b := newTestApp(t)
	b.AddStock("GME", "GameStop", 20, false)
	id := b.AddBroker("Alice", 1000)
	ctx := context.Background()
	a.HandleCommand(ctx, "/login "+id)

	require.Contains(t, a.HandleCommand(ctx, "/buy GME 1"), "Trading is not active for this stock")
	require.Contains(t, a.HandleCommand(ctx, "/sell gme 1"), "Trading is not active for this stock")
	require.Equal(t, 0, b.Calls("POST /brokers/{id}/buy"))
	require.Equal(t, 0, b.Calls("POST /brokers/{id}/sell"))
	bal, _ := b.Balance(id)
	require.Equal(t, "1000", bal.String())

	require.Contains(t, a.HandleCommand(ctx, "/buy NOPE 1"), "Stock not found")
	require.Equal(t, 0, b.Calls("POST /brokers/{id}/buy"))
}

func TestHandleCommand_Admin(t *testing.T) {
	a, b := newTestApp(t)
	b.AddBroker("Alice", 1000)
	ctx := context.Background()

	require.Contains(t, a.HandleCommand(ctx, "/admin"), "Alice")
	require.Contains(t, a.HandleCommand(ctx, "/start"), "started")
	require.Contains(t, a.HandleCommand(ctx, "/speed 4"), "x4")
	require.Contains(t, a.HandleCommand(ctx, "/speed fast"), "Invalid")
	require.Contains(t, a.HandleCommand(ctx, "/stop"), "stopped")
	require.Contains(t, a.HandleCommand(ctx, "/reset"), "2024-01-02")
	require.Contains(t, a.HandleCommand(ctx, "/status"), "Logged in as admin")
	require.Contains(t, a.HandleCommand(ctx, "/help"), "/buy <symbol> <qty>")
	require.Contains(t, a.HandleCommand(ctx, "/bogus"), "Unknown command")
	require.Empty(t, a.HandleCommand(ctx, "   "))
}

func TestHandleCommand_PriceUsesLiveStatus(t *testing.T) {
	a, b := newTestApp(t)
	ctx := context.Background()

	require.Contains(t, a.HandleCommand(ctx, "/price aapl"), "$150.00")

	updates := make(chan push.Update, 16)
	wctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.Watch(wctx, func(u push.Update) { updates <- u }) }()

	require.Eventually(t, a.Push.IsConnected, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return b.PushClients() == 1 }, 2*time.Second, 10*time.Millisecond)
	b.Tick("2024-01-03", map[string]float64{"AAPL": 155})

	deadline := time.After(3 * time.Second)
	for got := false; !got; {
		select {
		case u := <-updates:
			got = u.Kind == push.UpdateStatus
		case <-deadline:
			t.Fatal("no status update")
		}
	}

	out := a.HandleCommand(ctx, "/price AAPL")
	require.Contains(t, out, "$155.00")
	require.Contains(t, out, "live")
	require.Contains(t, a.HandleCommand(ctx, "/stocks"), "$155.00")
	require.Contains(t, a.HandleCommand(ctx, "/status"), "2024-01-03")

	cancel()
	require.NoError(t, <-done)
	require.False(t, a.Push.IsConnected())
}
