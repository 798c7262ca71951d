// Package a2s implements the Valve "Any-to-Server" query family: a
// transient-socket UDP transport, single/split packet reassembly for both
// the GoldSrc and OrangeBox/Source dialects, and the A2S_INFO / A2S_PLAYER
// / A2S_RULES request/response pairs.
package a2s

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/calyxforge/valveclient/errs"
)

// Dialect selects which split-packet header layout and engine request
// quirks apply. It is always chosen by the caller based on the engine kind
// of the remote server; it is never auto-detected from a reply.
type Dialect int

const (
	// GoldSrc is the older Half-Life 1 era split-packet header (9 bytes).
	GoldSrc Dialect = iota
	// OrangeBox is the newer Source engine split-packet header (12 bytes).
	OrangeBox
)

const (
	headerSingle = 0xFFFFFFFF
	headerSplit  = 0xFFFFFFFE

	maxDatagram = 9000
)

// Transport performs one query: open a transient UDP socket, connect it to
// addr (filtering any other source), send req, and receive either a single
// packet or a fully reassembled split response.
type Transport struct {
	// Dialect selects the split-packet header layout to use when the first
	// response packet advertises itself as split.
	Dialect Dialect
}

// NewTransport returns a Transport bound to the given engine dialect.
func NewTransport(dialect Dialect) *Transport {
	return &Transport{Dialect: dialect}
}

// Query opens a transient UDP socket to addr, sends req, and returns the
// payload of the (possibly reassembled) response with the 4-byte
// single-packet header or the split-packet headers stripped. The socket is
// closed before Query returns.
func (t *Transport) Query(addr string, req []byte, timeout time.Duration) ([]byte, error) {
	udpAddr, errResolve := net.ResolveUDPAddr("udp", addr)
	if errResolve != nil {
		return nil, errors.Wrap(errResolve, "a2s: resolve address")
	}

	conn, errDial := net.DialUDP("udp", nil, udpAddr)
	if errDial != nil {
		return nil, errors.Wrap(errDial, "a2s: dial")
	}
	defer conn.Close()

	if timeout > 0 {
		if errDeadline := conn.SetDeadline(time.Now().Add(timeout)); errDeadline != nil {
			return nil, errors.Wrap(errDeadline, "a2s: set deadline")
		}
	}

	if _, errWrite := conn.Write(req); errWrite != nil {
		return nil, errs.NormalizeNetError(errWrite)
	}

	first, errRecv := t.receive(conn)
	if errRecv != nil {
		return nil, errRecv
	}

	return t.classify(conn, first)
}

// Ping sends the ping request and succeeds iff the response byte at offset
// 4 (just past the single-packet header) is 0x6A. Per §4.2, a socket
// timeout is normalized to a negative/false result rather than an error;
// any other failure propagates.
func (t *Transport) Ping(addr string, timeout time.Duration) (bool, error) {
	resp, err := t.Query(addr, pingRequest(), timeout)
	if err != nil {
		var timeoutErr *errs.TimeoutError
		if errors.As(err, &timeoutErr) {
			return false, nil
		}

		return false, err
	}

	// Query has already stripped the 4-byte header, so offset 4 of the
	// datagram is resp[0].
	return len(resp) > 0 && resp[0] == 0x6A, nil
}

// Challenge sends the get-challenge request and returns the 4-byte
// challenge value (little-endian, as returned on the wire).
func (t *Transport) Challenge(addr string, timeout time.Duration) (int32, error) {
	resp, err := t.Query(addr, challengeRequest(), timeout)
	if err != nil {
		return 0, err
	}

	if len(resp) < 5 || resp[0] != respChallenge {
		return 0, &errs.FormatError{Input: string(resp)}
	}

	return int32(uint32(resp[1]) | uint32(resp[2])<<8 | uint32(resp[3])<<16 | uint32(resp[4])<<24), nil
}

func (t *Transport) receive(conn *net.UDPConn) ([]byte, error) {
	buf := make([]byte, maxDatagram)

	n, errRead := conn.Read(buf)
	if errRead != nil {
		return nil, errs.NormalizeNetError(errRead)
	}

	return buf[:n], nil
}

// classify inspects the 4-byte leading header of first and either returns
// its payload directly (single-packet) or reassembles a full split
// response, reading further packets off conn as needed.
func (t *Transport) classify(conn *net.UDPConn, first []byte) ([]byte, error) {
	if len(first) < 4 {
		return nil, &errs.FormatError{Input: string(first)}
	}

	header := uint32(first[0]) | uint32(first[1])<<8 | uint32(first[2])<<16 | uint32(first[3])<<24

	switch header {
	case headerSingle:
		return first[4:], nil
	case headerSplit:
		return t.reassemble(conn, first)
	default:
		var h [4]byte
		copy(h[:], first[:4])

		return nil, &errs.UnknownHeaderError{Header: h}
	}
}

// reassemble collects every packet of a split response into an ordered
// slice keyed by packet index, then concatenates payloads only (headers
// stripped), per the dialect-specific header layout.
func (t *Transport) reassemble(conn *net.UDPConn, first []byte) ([]byte, error) {
	total, index, payload, errParse := t.parseSplitHeader(first)
	if errParse != nil {
		return nil, errParse
	}

	if total <= 0 {
		return []byte{}, nil
	}

	packets := make([][]byte, total)
	packets[index] = payload

	remaining := total - 1
	for remaining > 0 {
		buf, errRecv := t.receive(conn)
		if errRecv != nil {
			return nil, errRecv
		}

		if len(buf) < 4 {
			continue
		}

		header := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
		if header != headerSplit {
			continue
		}

		_, idx, pl, errHdr := t.parseSplitHeader(buf)
		if errHdr != nil {
			return nil, errHdr
		}

		if packets[idx] == nil {
			packets[idx] = pl
			remaining--
		}
	}

	return wireConcat(packets), nil
}

// parseSplitHeader reads the dialect-specific split-packet header
// (GoldSrc: 9 bytes total, count/index packed in the low/high nibble of
// byte 8; OrangeBox: 12 bytes total, count at byte 8, index at byte 9) and
// returns the packet count, this packet's index, and its payload with the
// header stripped.
func (t *Transport) parseSplitHeader(buf []byte) (total int, index int, payload []byte, err error) {
	switch t.Dialect {
	case GoldSrc:
		if len(buf) < 9 {
			return 0, 0, nil, &errs.FormatError{Input: string(buf)}
		}

		total = int(buf[8] & 0x0F)
		index = int(buf[8] >> 4)
		payload = buf[9:]
	case OrangeBox:
		if len(buf) < 12 {
			return 0, 0, nil, &errs.FormatError{Input: string(buf)}
		}

		total = int(buf[8])
		index = int(buf[9])
		payload = buf[12:]
	default:
		return 0, 0, nil, errors.Errorf("a2s: unknown dialect %d", t.Dialect)
	}

	if index < 0 || (total > 0 && index >= total) {
		return 0, 0, nil, &errs.FormatError{Input: string(buf)}
	}

	return total, index, payload, nil
}

func wireConcat(packets [][]byte) []byte {
	size := 0
	for _, p := range packets {
		size += len(p)
	}

	out := make([]byte, 0, size)
	for _, p := range packets {
		out = append(out, p...)
	}

	return out
}
