package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Engine.IO v4 packet types (first byte of every websocket text frame).
const (
	engineOpen    byte = '0'
	engineClose   byte = '1'
	enginePing    byte = '2'
	enginePong    byte = '3'
	engineMessage byte = '4'
)

// Socket.IO v5 packet types (second byte of an Engine.IO message).
const (
	socketConnect      byte = '0'
	socketDisconnect   byte = '1'
	socketEvent        byte = '2'
	socketAck          byte = '3'
	socketConnectError byte = '4'
)

var errEmptyPacket = errors.New("push: empty packet")

// packet is one decoded frame. For events, Data is the first event argument.
type packet struct {
	Engine    byte
	Socket    byte
	Namespace string
	Event     string
	Data      json.RawMessage
}

// handshake is the Engine.IO open payload.
type handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"` // ms
	PingTimeout  int      `json:"pingTimeout"`  // ms
	MaxPayload   int      `json:"maxPayload"`
}

func decodePacket(msg []byte) (packet, error) {
	if len(msg) == 0 {
		return packet{}, errEmptyPacket
	}
	p := packet{Engine: msg[0]}
	rest := msg[1:]

	switch p.Engine {
	case engineOpen:
		p.Data = json.RawMessage(rest)
		return p, nil
	case engineClose, enginePing, enginePong:
		return p, nil
	case engineMessage:
	default:
		return p, fmt.Errorf("push: unknown engine packet type %q", p.Engine)
	}

	if len(rest) == 0 {
		return p, errEmptyPacket
	}
	p.Socket = rest[0]
	rest = rest[1:]

	// Optional "/namespace," prefix.
	if len(rest) > 0 && rest[0] == '/' {
		end := strings.IndexByte(string(rest), ',')
		if end < 0 {
			p.Namespace = string(rest)
			rest = nil
		} else {
			p.Namespace = string(rest[:end])
			rest = rest[end+1:]
		}
	}
	// Optional ack id.
	for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		rest = rest[1:]
	}

	switch p.Socket {
	case socketEvent, socketAck:
		var args []json.RawMessage
		if err := json.Unmarshal(rest, &args); err != nil {
			return p, fmt.Errorf("push: decode event: %w", err)
		}
		if len(args) == 0 {
			return p, fmt.Errorf("push: event without name")
		}
		if err := json.Unmarshal(args[0], &p.Event); err != nil {
			return p, fmt.Errorf("push: decode event name: %w", err)
		}
		if len(args) > 1 {
			p.Data = args[1]
		}
	default:
		if len(rest) > 0 {
			p.Data = json.RawMessage(rest)
		}
	}
	return p, nil
}

// EncodeEvent renders a Socket.IO event frame on the default namespace: 42["name",payload].
func EncodeEvent(name string, payload any) ([]byte, error) {
	b, err := json.Marshal([]any{name, payload})
	if err != nil {
		return nil, err
	}
	return append([]byte{engineMessage, socketEvent}, b...), nil
}

// Endpoint turns a backend base address into its Socket.IO websocket URL.
// "http://localhost:3000" becomes "ws://localhost:3000/socket.io/?EIO=4&transport=websocket".
func Endpoint(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("push: parse url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("push: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("push: missing host in %q", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
