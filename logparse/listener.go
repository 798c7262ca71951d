package logparse

import (
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/calyxforge/valveclient/errs"
)

// Receiver accepts one raw UDP log datagram. Implementations (notably
// the valve package's Server handle) parse it and dispatch the result
// to their own subscribers; logparse itself has no opinion on dispatch.
type Receiver interface {
	ProcessLog(payload []byte)
}

// ServerListener is the per-server form from §4.6: a "connected UDP"
// socket bound to one remote endpoint, which the kernel itself filters
// by source address. It has no demultiplexing to do.
type ServerListener struct {
	log      *zap.Logger
	receiver Receiver

	mu      sync.RWMutex
	conn    *net.UDPConn
	running atomic.Bool
}

// NewServerListener returns a ServerListener that will hand every
// datagram received from remoteAddr to receiver once Listen is called.
func NewServerListener(receiver Receiver, log *zap.Logger) *ServerListener {
	if log == nil {
		log = zap.NewNop()
	}

	return &ServerListener{log: log, receiver: receiver}
}

// Listen opens a UDP socket connected to remoteAddr and starts the
// reader goroutine. It returns ErrAlreadyListening if already open.
func (s *ServerListener) Listen(remoteAddr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return errs.ErrAlreadyListening
	}

	udpAddr, errResolve := net.ResolveUDPAddr("udp", remoteAddr)
	if errResolve != nil {
		return errors.Wrap(errResolve, "logparse: resolve remote address")
	}

	conn, errDial := net.DialUDP("udp", nil, udpAddr)
	if errDial != nil {
		return errors.Wrap(errDial, "logparse: dial")
	}

	s.conn = conn
	s.running.Store(true)

	go s.readLoop(conn)

	return nil
}

// Stop shuts down and closes the socket; the reader exits on its next
// completed (or failed) read.
func (s *ServerListener) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running.Store(false)

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *ServerListener) readLoop(conn *net.UDPConn) {
	buf := make([]byte, 9000)

	for s.running.Load() {
		n, errRead := conn.Read(buf)
		if errRead != nil {
			return
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		s.receiver.ProcessLog(payload)
	}
}

// Listener is the shared form from §4.6: one local UDP socket
// demultiplexing incoming datagrams by source endpoint to a mapping of
// remote endpoint -> Receiver. Administrative mutations (AddServer,
// RemoveServer, Listen, Stop) take the exclusive lock; the reader
// acquires a shared lock to dispatch.
type Listener struct {
	log *zap.Logger

	mu      sync.RWMutex
	servers map[string]Receiver
	conn    *net.UDPConn
	running atomic.Bool

	exception func(error)
}

// NewListener returns an empty shared Listener. onException, if
// non-nil, receives any panic escaping a Receiver's ProcessLog, wrapped
// as an error, instead of letting it kill the reader goroutine.
func NewListener(onException func(error), log *zap.Logger) *Listener {
	if log == nil {
		log = zap.NewNop()
	}

	if onException == nil {
		onException = func(error) {}
	}

	return &Listener{
		log:       log,
		servers:   map[string]Receiver{},
		exception: onException,
	}
}

// AddServer registers receiver under remoteAddr.
func (l *Listener) AddServer(remoteAddr string, receiver Receiver) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.servers[remoteAddr] = receiver
}

// RemoveServer unregisters whatever receiver is bound to remoteAddr, if
// any.
func (l *Listener) RemoveServer(remoteAddr string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.servers, remoteAddr)
}

// Listen opens the shared UDP socket at localAddr and starts the
// demultiplexing reader. It returns ErrAlreadyListening if already open.
func (l *Listener) Listen(localAddr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return errs.ErrAlreadyListening
	}

	udpAddr, errResolve := net.ResolveUDPAddr("udp", localAddr)
	if errResolve != nil {
		return errors.Wrap(errResolve, "logparse: resolve local address")
	}

	conn, errListen := net.ListenUDP("udp", udpAddr)
	if errListen != nil {
		return errors.Wrap(errListen, "logparse: listen")
	}

	l.conn = conn
	l.running.Store(true)

	go l.readLoop(conn)

	return nil
}

// Stop shuts down and closes the shared socket.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.running.Store(false)

	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
}

func (l *Listener) readLoop(conn *net.UDPConn) {
	buf := make([]byte, 9000)

	for l.running.Load() {
		n, remote, errRead := conn.ReadFromUDP(buf)
		if errRead != nil {
			return
		}

		l.mu.RLock()
		receiver, found := l.servers[remote.String()]
		l.mu.RUnlock()

		if !found {
			continue
		}

		l.dispatch(receiver, buf[:n])
	}
}

// dispatch hands payload to receiver, recovering any panic and routing
// it to the exception callback rather than letting it kill the reader.
func (l *Listener) dispatch(receiver Receiver, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			l.exception(errors.Errorf("logparse: receiver panic: %v", r))
		}
	}()

	body := make([]byte, len(payload))
	copy(body, payload)

	receiver.ProcessLog(body)
}
