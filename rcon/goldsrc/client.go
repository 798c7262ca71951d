// Package goldsrc implements the GoldSrc RCON protocol: a stateless,
// challenge-gated UDP command channel. Unlike Source RCON there is no
// persistent session — every query_rcon re-sends the current challenge
// nonce and password alongside the command.
package goldsrc

import (
	"fmt"
	"math/rand"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/calyxforge/valveclient/errs"
	"github.com/calyxforge/valveclient/status"
)

const (
	emptyChallenge = -1

	maxDatagram = 9000
)

var (
	rxChallenge   = regexp.MustCompile(`^challenge rcon (\d+)`)
	rxCvar        = regexp.MustCompile(`(?i)"(\S+)"\s+is\s+"([^"]*)"`)
	rxLogCurrent  = regexp.MustCompile(`current:\s+(\S+):(\d+)`)
	rxLogAddSucc  = regexp.MustCompile(`logaddress_add:\s+(\S+):(\d+)`)
	rxLogDelSucc  = regexp.MustCompile(`deleting:\s+(\S+):(\d+)`)
)

// Client is a GoldSrc RCON session bound to one remote address and
// password. It has no persistent socket: every operation opens a
// transient UDP connection, per the stateless-challenge design of §4.4.1.
type Client struct {
	log      *zap.Logger
	addr     string
	password string

	challenge int64 // emptyChallenge when Unchallenged
}

// NewClient returns a Client targeting addr with the given RCON password.
// A nil logger is replaced with zap's no-op logger.
func NewClient(addr string, password string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		log:       log,
		addr:      addr,
		password:  password,
		challenge: emptyChallenge,
	}
}

// ChallengeRCON requests a fresh challenge nonce and, on success,
// transitions the client to the Challenged state.
func (c *Client) ChallengeRCON(timeout time.Duration) error {
	reply, err := c.send(c.addr, []byte("challenge rcon"), timeout)
	if err != nil {
		return err
	}

	match := rxChallenge.FindSubmatch(reply)
	if match == nil {
		return errs.ErrBadRconChallenge
	}

	nonce, errParse := strconv.ParseInt(string(match[1]), 10, 64)
	if errParse != nil {
		return errs.ErrBadRconChallenge
	}

	c.challenge = nonce

	return nil
}

// Reset clears the challenge nonce, returning the client to the
// Unchallenged state. The next QueryRCON/SendRCON will be rejected by
// the server until ChallengeRCON runs again.
func (c *Client) Reset() {
	c.challenge = emptyChallenge
}

// SendRCON fires a command and does not wait for or consume a reply.
func (c *Client) SendRCON(cmd string) error {
	_, err := c.sendNoWait(c.body(cmd))

	return err
}

// QueryRCON sends cmd and collects exactly one reply datagram, decoded to
// text with the leading 4-byte header stripped. A "bad challenge." or
// "bad rcon_password." prefix is translated to the corresponding error.
func (c *Client) QueryRCON(cmd string, timeout time.Duration) (string, error) {
	reply, err := c.send(c.addr, c.body(cmd), timeout)
	if err != nil {
		return "", err
	}

	text := string(reply)

	switch {
	case strings.HasPrefix(text, "bad challenge."):
		return "", errs.ErrBadRconChallenge
	case strings.HasPrefix(text, "bad rcon_password."):
		return "", errs.ErrBadRconPassword
	default:
		return text, nil
	}
}

// IsRCONPasswordValid challenges first if necessary, then verifies the
// password by round-tripping a random token through `echo`.
func (c *Client) IsRCONPasswordValid(timeout time.Duration) (bool, error) {
	if c.challenge == emptyChallenge {
		if err := c.ChallengeRCON(timeout); err != nil {
			return false, err
		}
	}

	token := fmt.Sprintf("%d", rand.Int63()) //nolint:gosec // not security sensitive

	reply, err := c.QueryRCON("echo "+token, timeout)
	if err != nil {
		if errors.Is(err, errs.ErrBadRconPassword) {
			return false, nil
		}

		return false, err
	}

	return strings.Contains(reply, token), nil
}

// GetCvar parses `"<name>" is "<value>"` from the reply to sending name as
// a bare command.
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

// SetCvar sends `<cvar> "<value>"`, mirroring the shape every real client
// that exposes GetCvar also exposes for writing.
func (c *Client) SetCvar(name string, value string) error {
	return c.SendRCON(fmt.Sprintf(`%s "%s"`, name, value))
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
func (c *Client) StartLog() error {
	return c.SendRCON("log on")
}

// StopLog disables UDP logging.
func (c *Client) StopLog() error {
	return c.SendRCON("log off")
}

// GetLogAddresses lists the currently registered log destinations.
func (c *Client) GetLogAddresses(timeout time.Duration) ([]string, error) {
	reply, err := c.QueryRCON("logaddress_add", timeout)
	if err != nil {
		return nil, err
	}

	matches := rxLogCurrent.FindAllStringSubmatch(reply, -1)

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, net.JoinHostPort(m[1], m[2]))
	}

	return out, nil
}

// AddLogAddress registers ip:port as a log destination.
func (c *Client) AddLogAddress(ip string, port string, timeout time.Duration) error {
	reply, err := c.QueryRCON(fmt.Sprintf("logaddress_add %s %s", ip, port), timeout)
	if err != nil {
		return err
	}

	return classifyLogAddReply(reply)
}

// DeleteLogAddress unregisters ip:port as a log destination.
func (c *Client) DeleteLogAddress(ip string, port string, timeout time.Duration) error {
	reply, err := c.QueryRCON(fmt.Sprintf("logaddress_del %s %s", ip, port), timeout)
	if err != nil {
		return err
	}

	return classifyLogDelReply(reply)
}

// GetStatus sends `status` and parses the reply per the status package.
func (c *Client) GetStatus(timeout time.Duration) (status.Info, error) {
	reply, err := c.QueryRCON("status", timeout)
	if err != nil {
		return status.Info{}, err
	}

	return status.Parse(reply)
}

func classifyLogAddReply(reply string) error {
	if rxLogAddSucc.MatchString(reply) {
		return nil
	}

	switch {
	case strings.Contains(reply, "Unable to resolve"):
		return errs.ErrUnableToResolve
	case strings.Contains(reply, "already in list"):
		return errs.ErrAddressAlreadyInList
	case strings.Contains(reply, "No address added"), strings.Contains(reply, "No addresses added"):
		return errs.ErrNoAddressesAdded
	default:
		return &errs.GameServerError{Reply: reply}
	}
}

func classifyLogDelReply(reply string) error {
	if rxLogDelSucc.MatchString(reply) {
		return nil
	}

	switch {
	case strings.Contains(reply, "Unable to resolve"):
		return errs.ErrUnableToResolve
	case strings.Contains(reply, "not in list"), strings.Contains(reply, "not found"):
		return errs.ErrAddressNotFound
	default:
		return &errs.GameServerError{Reply: reply}
	}
}

// body formats the standard GoldSrc RCON command envelope.
func (c *Client) body(cmd string) []byte {
	return []byte(fmt.Sprintf(`rcon %d "%s" %s`, c.challenge, c.password, cmd))
}

// send opens a transient UDP socket, writes body, and waits for exactly
// one reply datagram with the leading single-packet header stripped.
func (c *Client) send(addr string, body []byte, timeout time.Duration) ([]byte, error) {
	conn, err := c.dial(addr, timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, errWrite := conn.Write(body); errWrite != nil {
		return nil, errs.NormalizeNetError(errWrite)
	}

	buf := make([]byte, maxDatagram)

	n, errRead := conn.Read(buf)
	if errRead != nil {
		return nil, errs.NormalizeNetError(errRead)
	}

	if n < 4 {
		return nil, &errs.FormatError{Input: string(buf[:n])}
	}

	return buf[4:n], nil
}

// sendNoWait opens a transient UDP socket, writes body, and returns
// immediately without reading a reply.
func (c *Client) sendNoWait(body []byte) (int, error) {
	conn, err := c.dial(c.addr, 0)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	n, errWrite := conn.Write(body)
	if errWrite != nil {
		return 0, errs.NormalizeNetError(errWrite)
	}

	return n, nil
}

func (c *Client) dial(addr string, timeout time.Duration) (*net.UDPConn, error) {
	udpAddr, errResolve := net.ResolveUDPAddr("udp", addr)
	if errResolve != nil {
		return nil, errors.Wrap(errResolve, "goldsrc: resolve address")
	}

	conn, errDial := net.DialUDP("udp", nil, udpAddr)
	if errDial != nil {
		return nil, errors.Wrap(errDial, "goldsrc: dial")
	}

	if timeout > 0 {
		if errDeadline := conn.SetDeadline(time.Now().Add(timeout)); errDeadline != nil {
			conn.Close()

			return nil, errors.Wrap(errDeadline, "goldsrc: set deadline")
		}
	}

	return conn, nil
}
