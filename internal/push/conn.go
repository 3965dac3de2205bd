package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

var errServerDisconnect = errors.New("push: server closed the session")

// dial opens the websocket and completes the Engine.IO open and Socket.IO namespace
// connect exchange. The returned connection is ready to receive events.
func dial(ctx context.Context, base string, hc *http.Client) (*websocket.Conn, handshake, error) {
	var hs handshake

	u, err := Endpoint(base)
	if err != nil {
		return nil, hs, err
	}

	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPClient: hc})
	if err != nil {
		return nil, hs, fmt.Errorf("push: dial %s: %w", u, err)
	}
	fail := func(err error) (*websocket.Conn, handshake, error) {
		conn.Close(websocket.StatusProtocolError, "handshake failed")
		return nil, hs, err
	}

	// 1. Engine.IO open packet
	p, err := readPacket(ctx, conn)
	if err != nil {
		return fail(err)
	}
	if p.Engine != engineOpen {
		return fail(fmt.Errorf("push: expected open packet, got %q", p.Engine))
	}
	if err := json.Unmarshal(p.Data, &hs); err != nil {
		return fail(fmt.Errorf("push: decode open packet: %w", err))
	}

	// 2. Join the default namespace
	if err := conn.Write(ctx, websocket.MessageText, []byte{engineMessage, socketConnect}); err != nil {
		return fail(fmt.Errorf("push: namespace connect: %w", err))
	}

	// 3. Wait for the namespace ack, answering pings meanwhile
	for {
		p, err := readPacket(ctx, conn)
		if err != nil {
			return fail(err)
		}
		switch {
		case p.Engine == enginePing:
			if err := conn.Write(ctx, websocket.MessageText, []byte{enginePong}); err != nil {
				return fail(err)
			}
		case p.Engine == engineMessage && p.Socket == socketConnect:
			return conn, hs, nil
		case p.Engine == engineMessage && p.Socket == socketConnectError:
			var body struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(p.Data, &body)
			return fail(fmt.Errorf("push: namespace connect refused: %s", body.Message))
		case p.Engine == engineClose:
			return fail(errServerDisconnect)
		}
	}
}

// readPacket reads frames until it finds a decodable text packet.
func readPacket(ctx context.Context, conn *websocket.Conn) (packet, error) {
	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			return packet{}, err
		}
		if typ != websocket.MessageText {
			continue
		}
		p, err := decodePacket(msg)
		if errors.Is(err, errEmptyPacket) {
			continue
		}
		return p, err
	}
}
