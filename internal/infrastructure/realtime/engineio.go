package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Engine.IO v4 packet types (first byte of a websocket text frame).
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioNoop    = '6'
)

// Socket.IO packet types carried inside an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioAck          = '3'
	sioConnectError = '4'
)

type frameKind int

const (
	frameIgnored frameKind = iota
	frameOpen
	frameClose
	framePing
	framePong
	frameConnect
	frameDisconnect
	frameConnectError
	frameEvent
)

// handshake is the payload of the Engine.IO open packet.
type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// readWindow is how long the server may stay silent before the connection is dead.
func (h handshake) readWindow() time.Duration {
	if h.PingInterval <= 0 {
		return 0
	}
	return time.Duration(h.PingInterval+h.PingTimeout) * time.Millisecond
}

type frame struct {
	kind      frameKind
	handshake handshake
	event     string
	data      json.RawMessage
	message   string
}

var errMalformed = errors.New("malformed packet")

func decodeFrame(msg []byte) (frame, error) {
	if len(msg) == 0 {
		return frame{}, errMalformed
	}
	switch msg[0] {
	case eioOpen:
		var hs handshake
		if err := json.Unmarshal(msg[1:], &hs); err != nil {
			return frame{}, fmt.Errorf("open packet: %w", err)
		}
		return frame{kind: frameOpen, handshake: hs}, nil
	case eioClose:
		return frame{kind: frameClose}, nil
	case eioPing:
		return frame{kind: framePing}, nil
	case eioPong:
		return frame{kind: framePong}, nil
	case eioNoop:
		return frame{kind: frameIgnored}, nil
	case eioMessage:
		return decodeSocketIO(msg[1:])
	}
	return frame{}, errMalformed
}

func decodeSocketIO(p []byte) (frame, error) {
	if len(p) == 0 {
		return frame{}, errMalformed
	}
	kind := p[0]
	body := skipNamespace(p[1:])
	switch kind {
	case sioConnect:
		return frame{kind: frameConnect}, nil
	case sioDisconnect:
		return frame{kind: frameDisconnect}, nil
	case sioConnectError:
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &e)
		return frame{kind: frameConnectError, message: e.Message}, nil
	case sioEvent:
		name, data, err := decodeEvent(skipAckID(body))
		if err != nil {
			return frame{}, err
		}
		return frame{kind: frameEvent, event: name, data: data}, nil
	case sioAck:
		return frame{kind: frameIgnored}, nil
	}
	return frame{}, errMalformed
}

// skipNamespace drops a leading "/nsp," so only the default namespace is assumed.
func skipNamespace(p []byte) []byte {
	if len(p) > 0 && p[0] == '/' {
		if i := bytes.IndexByte(p, ','); i >= 0 {
			return p[i+1:]
		}
		return nil
	}
	return p
}

func skipAckID(p []byte) []byte {
	i := 0
	for i < len(p) && p[i] >= '0' && p[i] <= '9' {
		i++
	}
	return p[i:]
}

// decodeEvent splits ["name", arg] into the name and the first argument.
func decodeEvent(p []byte) (string, json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(p, &parts); err != nil || len(parts) == 0 {
		return "", nil, errMalformed
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, errMalformed
	}
	if len(parts) == 1 {
		return name, nil, nil
	}
	return name, parts[1], nil
}

// encodeEvent builds 42["name",args...].
func encodeEvent(name string, args ...interface{}) ([]byte, error) {
	parts := append([]interface{}{name}, args...)
	b, err := json.Marshal(parts)
	if err != nil {
		return nil, err
	}
	return append([]byte{eioMessage, sioEvent}, b...), nil
}

// encodeConnect builds the namespace connect packet, with an auth payload when set.
func encodeConnect(auth map[string]string) ([]byte, error) {
	out := []byte{eioMessage, sioConnect}
	if len(auth) == 0 {
		return out, nil
	}
	b, err := json.Marshal(auth)
	if err != nil {
		return nil, err
	}
	return append(out, b...), nil
}

// socketURL turns an http(s) base URL into the Engine.IO websocket endpoint.
func socketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported socket scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket.io/"
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	return u.String(), nil
}
