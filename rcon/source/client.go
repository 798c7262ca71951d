// Package source implements the Source engine RCON protocol: a
// session-oriented TCP command channel with a length-prefixed packet
// framing and a flush-sentinel trick for collecting multi-packet replies.
package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/calyxforge/valveclient/errs"
	"github.com/calyxforge/valveclient/status"
)

const (
	typeResponse     = 0
	typeExecOrAuthOK = 2
	typeAuth         = 3

	// minPacketSize is the minimum legal value of the wire `size` field:
	// id(4) + type(4) + empty body(0) + two NUL terminators(2).
	minPacketSize = 10

	maxPacketBody = 1024 * 1024
)

var (
	rxCvar     = regexp.MustCompile(`(?i)"(\S+)"\s*=\s*"([^"]*)"`)
	rxLogEntry = regexp.MustCompile(`(\d+\.\d+\.\d+\.\d+):(\d+)`)
)

// packet is one framed Source RCON message: size is implicit in the wire
// encoding and is not retained here.
type packet struct {
	id   int32
	kind int32
	body []byte
}

// Client is a Source RCON session. QueryRCON holds writeMu for its whole
// send-then-collect sequence, so queries never interleave on the wire;
// ConnectRCON and DisconnectRCON do not take writeMu, which lets
// DisconnectRCON close the socket under a blocked QueryRCON. The
// packet-id counter is monotonic across the lifetime of the session.
type Client struct {
	log      *zap.Logger
	password string

	writeMu sync.Mutex
	conn    net.Conn
	nextID  atomic.Int32

	connected atomic.Bool
}

// NewClient returns a disconnected Client for the given RCON password.
// A nil logger is replaced with zap's no-op logger.
func NewClient(password string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{log: log, password: password}
}

// IsConnected reports whether the session is currently authenticated.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// ConnectRCON dials addr, authenticates with the session password, and
// transitions to Authenticated on success. On any failure the socket is
// closed and the client returns to Disconnected.
func (c *Client) ConnectRCON(addr string, timeout time.Duration) (bool, error) {
	if c.connected.Load() {
		return false, errs.ErrAlreadyConnected
	}

	conn, errDial := net.DialTimeout("tcp", addr, timeout)
	if errDial != nil {
		return false, errors.Wrap(errDial, "source: dial")
	}

	c.conn = conn

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	authID := c.nextID.Add(1)

	if errWrite := c.writePacket(authID, typeAuth, []byte(c.password)); errWrite != nil {
		c.closeLocked()

		return false, errWrite
	}

	// The server replies with an empty RESP_VALUE (discarded) followed by
	// the AUTH_RESPONSE.
	if _, errRead := c.readPacket(); errRead != nil {
		c.closeLocked()

		return false, errRead
	}

	authResp, errRead := c.readPacket()
	if errRead != nil {
		c.closeLocked()

		return false, errRead
	}

	if authResp.id == -1 {
		c.closeLocked()

		return false, errs.ErrBadRconPassword
	}

	c.connected.Store(true)

	return authResp.kind == typeExecOrAuthOK, nil
}

// DisconnectRCON shuts down and closes the socket. It is idempotent.
func (c *Client) DisconnectRCON() error {
	if !c.connected.Load() {
		return nil
	}

	c.closeLocked()

	return nil
}

func (c *Client) closeLocked() {
	c.connected.Store(false)

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// QueryRCON sends cmd as an EXEC packet followed immediately by an empty
// flush-sentinel EXEC, then collects every reply body tagged with the
// command's packet id until a packet arrives carrying an id at or past the
// sentinel's id.
func (c *Client) QueryRCON(cmd string, timeout time.Duration) (string, error) {
	if !c.connected.Load() {
		return "", errs.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if timeout > 0 && c.conn != nil {
		_ = c.conn.SetDeadline(time.Now().Add(timeout))
	}

	execID := c.nextID.Add(1)
	if errWrite := c.writePacket(execID, typeExecOrAuthOK, []byte(cmd)); errWrite != nil {
		return "", errWrite
	}

	flushID := c.nextID.Add(1)
	if errWrite := c.writePacket(flushID, typeExecOrAuthOK, nil); errWrite != nil {
		return "", errWrite
	}

	var out []byte

	for {
		pkt, errRead := c.readPacket()
		if errRead != nil {
			var ioErr *errs.IOError

			// Per Open Question 4, treat a connection that closes mid-
			// collection as the flush sentinel rather than propagating.
			if errors.As(errRead, &ioErr) && errors.Is(ioErr.Cause, io.EOF) {
				break
			}

			return "", errRead
		}

		if pkt.id == execID {
			out = append(out, pkt.body...)

			continue
		}

		if pkt.id >= flushID {
			break
		}
	}

	return string(out), nil
}

// GetCvar extracts `"<name>" = "<value>"` from the cvar query reply.
func (c *Client) GetCvar(name string, timeout time.Duration) (string, error) {
	reply, err := c.QueryRCON(name, timeout)
	if err != nil {
		return "", err
	}

	match := rxCvar.FindStringSubmatch(reply)
	if match == nil {
		return "", &errs.FormatError{Input: reply}
	}

	return match[2], nil
}

// SetCvar mirrors GoldSrc's ancillary cvar setter, routed through
// QueryRCON's exclusive write lock.
func (c *Client) SetCvar(name string, value string, timeout time.Duration) error {
	_, err := c.QueryRCON(fmt.Sprintf(`%s "%s"`, name, value), timeout)

	return err
}

// IsLogging reports whether UDP logging is currently enabled.
func (c *Client) IsLogging(timeout time.Duration) (bool, error) {
	reply, err := c.QueryRCON("log", timeout)
	if err != nil {
		return false, err
	}

	return !strings.Contains(reply, "not currently logging"), nil
}

// StartLog enables UDP logging.
func (c *Client) StartLog(timeout time.Duration) error {
	_, err := c.QueryRCON("log on", timeout)

	return err
}

// StopLog disables UDP logging.
func (c *Client) StopLog(timeout time.Duration) error {
	_, err := c.QueryRCON("log off", timeout)

	return err
}

// GetLogAddresses lists the currently registered log destinations via
// `logaddress_list`.
func (c *Client) GetLogAddresses(timeout time.Duration) ([]string, error) {
	reply, err := c.QueryRCON("logaddress_list", timeout)
	if err != nil {
		return nil, err
	}

	matches := rxLogEntry.FindAllStringSubmatch(reply, -1)

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, net.JoinHostPort(m[1], m[2]))
	}

	return out, nil
}

// AddLogAddress registers ip:port as a log destination.
func (c *Client) AddLogAddress(ip string, port string, timeout time.Duration) error {
	reply, err := c.QueryRCON(fmt.Sprintf("logaddress_add %s:%s", ip, port), timeout)
	if err != nil {
		return err
	}

	if strings.Contains(reply, "logaddress_add:") {
		return nil
	}

	return &errs.GameServerError{Reply: reply}
}

// DeleteLogAddress unregisters ip:port as a log destination.
func (c *Client) DeleteLogAddress(ip string, port string, timeout time.Duration) error {
	reply, err := c.QueryRCON(fmt.Sprintf("logaddress_del %s %s", ip, port), timeout)
	if err != nil {
		return err
	}

	if strings.Contains(reply, "logaddress_del:") {
		return nil
	}

	return &errs.GameServerError{Reply: reply}
}

// GetStatus sends `status` and parses the reply per the status package.
func (c *Client) GetStatus(timeout time.Duration) (status.Info, error) {
	reply, err := c.QueryRCON("status", timeout)
	if err != nil {
		return status.Info{}, err
	}

	return status.Parse(reply)
}

// writePacket frames and writes one packet: size:i32-LE | id:i32-LE |
// type:i32-LE | body | 0x00 | 0x00.
func (c *Client) writePacket(id int32, kind int32, body []byte) error {
	size := int32(4 + 4 + len(body) + 2)

	buf := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(size))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(id))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(kind))
	copy(buf[12:], body)
	// trailing two NUL bytes are already zero-valued.

	if _, errWrite := c.conn.Write(buf); errWrite != nil {
		return errs.NormalizeNetError(errWrite)
	}

	return nil
}

// readPacket reads exactly one framed packet, looping on partial reads
// via io.ReadFull rather than assuming a single Read call returns the
// full frame.
func (c *Client) readPacket() (packet, error) {
	sizeBuf := make([]byte, 4)
	if _, errRead := io.ReadFull(c.conn, sizeBuf); errRead != nil {
		return packet{}, errs.NormalizeNetError(errRead)
	}

	size := int32(binary.LittleEndian.Uint32(sizeBuf))

	if size < minPacketSize || size > maxPacketBody {
		return packet{}, &errs.FormatError{Input: fmt.Sprintf("packet size %d", size)}
	}

	body := make([]byte, size)
	if _, errRead := io.ReadFull(c.conn, body); errRead != nil {
		return packet{}, errs.NormalizeNetError(errRead)
	}

	id := int32(binary.LittleEndian.Uint32(body[0:4]))
	kind := int32(binary.LittleEndian.Uint32(body[4:8]))

	// body[8:] is the command text followed by two NUL terminators.
	payload := body[8:]
	payload = trimTrailingNuls(payload)

	return packet{id: id, kind: kind, body: payload}, nil
}

func trimTrailingNuls(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0x00 {
		end--
	}

	return b[:end]
}
