package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_Open(t *testing.T) {
	f, err := decodeFrame([]byte(`0{"sid":"abc","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`))
	require.NoError(t, err)
	assert.Equal(t, frameOpen, f.kind)
	assert.Equal(t, "abc", f.handshake.SID)
	assert.Equal(t, 45*time.Second, f.handshake.readWindow())
}

func TestDecodeFrame_Control(t *testing.T) {
	cases := map[string]frameKind{
		"1":                      frameClose,
		"2":                      framePing,
		"3":                      framePong,
		"6":                      frameIgnored,
		`40{"sid":"x"}`:          frameConnect,
		"41":                     frameDisconnect,
		`43["ack"]`:              frameIgnored,
		`44{"message":"nope"}`:   frameConnectError,
		`40/admin,{"sid":"x"}`:   frameConnect,
	}
	for in, want := range cases {
		f, err := decodeFrame([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, f.kind, in)
	}
}

func TestDecodeFrame_Event(t *testing.T) {
	f, err := decodeFrame([]byte(`42["user-notification",{"title":"Deposit received","message":"50 USDT"}]`))
	require.NoError(t, err)
	assert.Equal(t, frameEvent, f.kind)
	assert.Equal(t, "user-notification", f.event)
	assert.JSONEq(t, `{"title":"Deposit received","message":"50 USDT"}`, string(f.data))
}

func TestDecodeFrame_EventWithAckIDAndNamespace(t *testing.T) {
	f, err := decodeFrame([]byte(`42/live,17["getUsers",[{"userId":"u1"}]]`))
	require.NoError(t, err)
	assert.Equal(t, "getUsers", f.event)
	assert.JSONEq(t, `[{"userId":"u1"}]`, string(f.data))
}

func TestDecodeFrame_EventWithoutArgs(t *testing.T) {
	f, err := decodeFrame([]byte(`42["ping-room"]`))
	require.NoError(t, err)
	assert.Equal(t, "ping-room", f.event)
	assert.Nil(t, f.data)
}

func TestDecodeFrame_ConnectErrorMessage(t *testing.T) {
	f, err := decodeFrame([]byte(`44{"message":"Not authorized"}`))
	require.NoError(t, err)
	assert.Equal(t, "Not authorized", f.message)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	for _, in := range []string{"", "9", "4", "42", "42{}", `42[1]`, "0not-json"} {
		_, err := decodeFrame([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestEncodeEvent(t *testing.T) {
	b, err := encodeEvent("join-room", "64f0c1")
	require.NoError(t, err)
	assert.Equal(t, `42["join-room","64f0c1"]`, string(b))
}

func TestEncodeConnect(t *testing.T) {
	b, err := encodeConnect(nil)
	require.NoError(t, err)
	assert.Equal(t, "40", string(b))

	b, err = encodeConnect(map[string]string{"token": "t"})
	require.NoError(t, err)
	assert.Equal(t, `40{"token":"t"}`, string(b))
}

func TestSocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8000":      "ws://localhost:8000/socket.io/?EIO=4&transport=websocket",
		"https://api.example.com/":   "wss://api.example.com/socket.io/?EIO=4&transport=websocket",
		"https://api.example.com/rt": "wss://api.example.com/rt/socket.io/?EIO=4&transport=websocket",
	}
	for in, want := range cases {
		got, err := socketURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := socketURL("ftp://x")
	assert.Error(t, err)
}
