package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trading_terminal/internal/fakebackend"
	"trading_terminal/internal/view"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, c := newRootCmd()
	defer c.close()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func setupEnv(t *testing.T) *fakebackend.Backend {
	t.Helper()
	b := fakebackend.New()
	b.AddStock("AAPL", "Apple Inc.", 100, true)
	srv := b.Serve()
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("PUSH_URL", srv.URL)
	t.Setenv("SESSION_FILE", filepath.Join(dir, "session.json"))
	t.Setenv("LOG_FILE", filepath.Join(dir, "test.log"))
	t.Setenv("LOG_LEVEL", "ERROR")
	return b
}

func TestCLI_LoginTradeAndList(t *testing.T) {
	b := setupEnv(t)
	id := b.AddBroker("Alice", 1000)

	out, err := run(t, "brokers", "-o", "csv")
	require.NoError(t, err)
	require.Contains(t, out, "id,name,balance,positions")
	require.Contains(t, out, id+",Alice,$1000.00,0")

	out, err = run(t, "login", id)
	require.NoError(t, err)
	require.Contains(t, out, "/broker/"+id)

	out, err = run(t, "buy", "AAPL", "3")
	require.NoError(t, err)
	require.Contains(t, out, "Cash: $700.00")

	out, err = run(t, "portfolio", "-o", "json")
	require.NoError(t, err)
	var rows []view.HoldingRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "AAPL", rows[0].Symbol)
	require.Equal(t, "+$0.00", rows[0].ProfitLoss)

	_, err = run(t, "buy", "AAPL", "100")
	require.EqualError(t, err, "Insufficient funds")
}

func TestCLI_BuyInactiveStockRefused(t *testing.T) {
	b := setupEnv(t)
	b.AddStock("GME", "GameStop", 20, false)
	id := b.AddBroker("Alice", 1000)

	_, err := run(t, "buy", "GME", "1", "--broker", id)
	require.EqualError(t, err, "Trading is not active for this stock")
	require.Equal(t, 0, b.Calls("POST /brokers/{id}/buy"))
}

func TestCLI_Trading(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "trading", "set", "--speed", "2.5")
	require.NoError(t, err)
	require.Contains(t, out, "x2.5")

	out, err = run(t, "trading", "start")
	require.NoError(t, err)
	require.Contains(t, out, "2024-01-02")

	out, err = run(t, "trading", "settings", "-o", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "isActive: true")

	_, err = run(t, "trading", "set")
	require.Error(t, err)

	_, err = run(t, "trading", "stock", "AAPL", "maybe")
	require.Error(t, err)
}

func TestCLI_Errors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "portfolio")
	require.ErrorContains(t, err, "no broker selected")

	_, err = run(t, "stocks", "-o", "xml")
	require.Error(t, err)

	out, err := run(t, "open", "/")
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "No brokers yet."))
}

// endlessInput never runs out of lines.
type endlessInput struct{}

func (endlessInput) Read(p []byte) (int, error) {
	for i := range p {
		if i%2 == 0 {
			p[i] = 'x'
		} else {
			p[i] = '\n'
		}
	}
	return len(p), nil
}

func TestScanLines_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := scanLines(ctx, endlessInput{})
	require.Equal(t, "x", <-lines)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-lines:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)
}
