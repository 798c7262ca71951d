package source

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calyxforge/valveclient/errs"
)

// encodePacket builds one framed Source RCON wire packet.
func encodePacket(id int32, kind int32, body []byte) []byte {
	size := int32(4 + 4 + len(body) + 2)

	buf := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(size))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(id))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(kind))
	copy(buf[12:], body)

	return buf
}

func fakeTCPServer(t *testing.T, handle func(conn net.Conn)) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, errAccept := listener.Accept()
		if errAccept != nil {
			return
		}

		handle(conn)
	}()

	return listener.Addr().String()
}

func TestConnectRCONAuthFailure(t *testing.T) {
	addr := fakeTCPServer(t, func(conn net.Conn) {
		defer conn.Close()

		// discard the AUTH packet
		buf := make([]byte, 4096)
		_, _ = conn.Read(buf)

		_, _ = conn.Write(encodePacket(0, typeResponse, nil))
		_, _ = conn.Write(encodePacket(-1, typeExecOrAuthOK, nil))
	})

	client := NewClient("wrongpass", nil)
	ok, err := client.ConnectRCON(addr, 2*time.Second)
	require.False(t, ok)
	require.ErrorIs(t, err, errs.ErrBadRconPassword)
	require.False(t, client.IsConnected())
}

func TestConnectRCONSuccess(t *testing.T) {
	addr := fakeTCPServer(t, func(conn net.Conn) {
		defer conn.Close()

		buf := make([]byte, 4096)
		_, _ = conn.Read(buf)

		_, _ = conn.Write(encodePacket(0, typeResponse, nil))
		_, _ = conn.Write(encodePacket(1, typeExecOrAuthOK, nil))
	})

	client := NewClient("correct", nil)
	ok, err := client.ConnectRCON(addr, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, client.IsConnected())
}

func TestQueryRCONMultiPacketCollect(t *testing.T) {
	done := make(chan struct{})

	addr := fakeTCPServer(t, func(conn net.Conn) {
		defer conn.Close()

		buf := make([]byte, 4096)
		_, _ = conn.Read(buf)
		_, _ = conn.Write(encodePacket(0, typeResponse, nil))
		_, _ = conn.Write(encodePacket(1, typeExecOrAuthOK, nil))

		n, _ := conn.Read(buf)
		_ = n

		_, _ = conn.Write(encodePacket(2, typeResponse, []byte("alpha")))
		_, _ = conn.Write(encodePacket(2, typeResponse, []byte("beta")))
		_, _ = conn.Write(encodePacket(2, typeResponse, []byte("gamma")))
		_, _ = conn.Write(encodePacket(3, typeResponse, nil))

		close(done)
	})

	client := NewClient("correct", nil)
	_, err := client.ConnectRCON(addr, 2*time.Second)
	require.NoError(t, err)

	reply, err := client.QueryRCON("status", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, "alphabetagamma", reply)

	<-done
}

func TestQueryRCONNotConnected(t *testing.T) {
	client := NewClient("secret", nil)
	_, err := client.QueryRCON("status", time.Second)
	require.ErrorIs(t, err, errs.ErrNotConnected)
}

func TestReadPacketRejectsShortSize(t *testing.T) {
	addr := fakeTCPServer(t, func(conn net.Conn) {
		defer conn.Close()

		buf := make([]byte, 4096)
		_, _ = conn.Read(buf)
		_, _ = conn.Write(encodePacket(0, typeResponse, nil))

		// size field of 4 is below the 10-byte minimum.
		short := make([]byte, 4)
		binary.LittleEndian.PutUint32(short, 4)
		_, _ = conn.Write(short)
	})

	client := NewClient("wrongpass", nil)
	_, err := client.ConnectRCON(addr, 2*time.Second)
	require.Error(t, err)

	var formatErr *errs.FormatError

	require.ErrorAs(t, err, &formatErr)
}

func TestDisconnectRCONIdempotent(t *testing.T) {
	client := NewClient("secret", nil)
	require.NoError(t, client.DisconnectRCON())
	require.NoError(t, client.DisconnectRCON())
	require.False(t, client.IsConnected())
}

// connectedQueryServer authenticates the client, then dispatches every
// EXEC command it receives (after discarding the flush-sentinel EXEC)
// to respond, returning an accessor for the commands seen.
func connectedQueryServer(t *testing.T, respond func(cmd string) string) (*Client, func() []string) {
	t.Helper()

	var seen []string

	addr := fakeTCPServer(t, func(conn net.Conn) {
		defer conn.Close()

		buf := make([]byte, 4096)
		_, _ = conn.Read(buf) // AUTH
		_, _ = conn.Write(encodePacket(0, typeResponse, nil))
		_, _ = conn.Write(encodePacket(1, typeExecOrAuthOK, nil))

		for {
			n, errRead := conn.Read(buf)
			if errRead != nil {
				return
			}

			cmd, execID, flushID := decodeExecFlushPair(buf[:n])
			if execID == 0 {
				return
			}

			seen = append(seen, cmd)

			_, _ = conn.Write(encodePacket(execID, typeResponse, []byte(respond(cmd))))
			_, _ = conn.Write(encodePacket(flushID, typeResponse, nil))
		}
	})

	client := NewClient("correct", nil)
	_, err := client.ConnectRCON(addr, 2*time.Second)
	require.NoError(t, err)

	return client, func() []string { return seen }
}

// decodeExecFlushPair decodes the two back-to-back EXEC packets
// QueryRCON writes (the command packet and the empty flush sentinel)
// out of one TCP read, returning the command text and both packet ids.
func decodeExecFlushPair(buf []byte) (cmd string, execID, flushID int32) {
	if len(buf) < 4 {
		return "", 0, 0
	}

	firstSize := int32(binary.LittleEndian.Uint32(buf[0:4]))
	firstEnd := 4 + int(firstSize)

	if len(buf) < firstEnd {
		return "", 0, 0
	}

	first := buf[4:firstEnd]
	execID = int32(binary.LittleEndian.Uint32(first[0:4]))
	cmd = string(trimTrailingNuls(first[8:]))

	if len(buf) < firstEnd+4 {
		return cmd, execID, execID + 1
	}

	secondSize := int32(binary.LittleEndian.Uint32(buf[firstEnd : firstEnd+4]))
	secondEnd := firstEnd + 4 + int(secondSize)

	if len(buf) < secondEnd {
		return cmd, execID, execID + 1
	}

	second := buf[firstEnd+4 : secondEnd]
	flushID = int32(binary.LittleEndian.Uint32(second[0:4]))

	return cmd, execID, flushID
}

func TestAddLogAddressSendsColonJoinedEndpoint(t *testing.T) {
	client, seen := connectedQueryServer(t, func(cmd string) string {
		return "logaddress_add:  10.0.0.5:27500\n"
	})

	err := client.AddLogAddress("10.0.0.5", "27500", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, []string{"logaddress_add 10.0.0.5:27500"}, seen())
}

func TestAddLogAddressUnexpectedReply(t *testing.T) {
	client, _ := connectedQueryServer(t, func(cmd string) string {
		return "something unexpected\n"
	})

	err := client.AddLogAddress("10.0.0.5", "27500", 2*time.Second)

	var gameServerErr *errs.GameServerError
	require.ErrorAs(t, err, &gameServerErr)
}

func TestDeleteLogAddressSendsSpaceSeparatedEndpoint(t *testing.T) {
	client, seen := connectedQueryServer(t, func(cmd string) string {
		return "logaddress_del:  10.0.0.5:27500\n"
	})

	err := client.DeleteLogAddress("10.0.0.5", "27500", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, []string{"logaddress_del 10.0.0.5 27500"}, seen())
}
