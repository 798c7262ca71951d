package logparse

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingReceiver struct {
	received chan []byte
}

func (r *recordingReceiver) ProcessLog(payload []byte) {
	r.received <- payload
}

func TestListenerDispatchesToMatchingServerOnly(t *testing.T) {
	listener := NewListener(nil, nil)

	localAddr := "127.0.0.1:0"
	require.NoError(t, listener.Listen(localAddr))
	defer listener.Stop()

	// Resolve the ephemeral port the listener actually bound to.
	boundAddr := listenerBoundAddr(t, listener)

	matched := &recordingReceiver{received: make(chan []byte, 1)}
	unmatched := &recordingReceiver{received: make(chan []byte, 1)}

	sender, errDial := net.DialUDP("udp", nil, boundAddr)
	require.NoError(t, errDial)
	defer sender.Close()

	listener.AddServer(sender.LocalAddr().String(), matched)
	listener.AddServer("203.0.113.9:9999", unmatched)

	_, errWrite := sender.Write([]byte("hello"))
	require.NoError(t, errWrite)

	select {
	case payload := <-matched.received:
		require.Equal(t, []byte("hello"), payload)
	case <-time.After(2 * time.Second):
		t.Fatal("matched receiver never saw the datagram")
	}

	select {
	case <-unmatched.received:
		t.Fatal("unmatched receiver should not have been dispatched to")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListenerAlreadyListening(t *testing.T) {
	listener := NewListener(nil, nil)
	require.NoError(t, listener.Listen("127.0.0.1:0"))
	defer listener.Stop()

	err := listener.Listen("127.0.0.1:0")
	require.Error(t, err)
}

func listenerBoundAddr(t *testing.T, l *Listener) *net.UDPAddr {
	t.Helper()

	l.mu.RLock()
	defer l.mu.RUnlock()

	addr, ok := l.conn.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)

	return addr
}
