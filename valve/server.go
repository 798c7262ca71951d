package valve

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/calyxforge/valveclient/a2s"
	"github.com/calyxforge/valveclient/errs"
	"github.com/calyxforge/valveclient/logparse"
	"github.com/calyxforge/valveclient/rcon/goldsrc"
	"github.com/calyxforge/valveclient/rcon/source"
	"github.com/calyxforge/valveclient/status"
)

const defaultTimeoutMS = 5000

// Server is a live handle bound to one remote endpoint. It owns the
// engine-appropriate RCON client, an A2S query transport, and an
// optional log-ingest listener, and presents one facade over all three.
// The handle is either live (addr set) or disposed (addr cleared, every
// socket closed, every background reader stopped); every operation on a
// disposed handle returns errs.ErrDisposed.
type Server struct {
	log *zap.Logger

	mu        sync.RWMutex
	engine    Engine
	addr      string
	password  string
	timeoutMS int
	disposed  bool

	transport *a2s.Transport
	goldsrc   *goldsrc.Client
	source    *source.Client

	parser   *logparse.Parser
	listener *logparse.ServerListener

	dispatch *dispatcher
}

// NewServer returns a live Server bound to addr, speaking the given
// engine's RCON flavor and A2S dialect, authenticated with password. A
// nil logger is replaced with zap's no-op logger.
func NewServer(engine Engine, addr string, password string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	dialect := a2s.GoldSrc
	if engine == Source {
		dialect = a2s.OrangeBox
	}

	server := &Server{
		log:       log,
		engine:    engine,
		addr:      addr,
		password:  password,
		timeoutMS: defaultTimeoutMS,
		transport: a2s.NewTransport(dialect),
		parser:    logparse.NewParser(),
		dispatch:  newDispatcher(),
	}

	switch engine {
	case GoldSrc:
		server.goldsrc = goldsrc.NewClient(addr, password, log)
	case Source:
		server.source = source.NewClient(password, log)
	}

	return server
}

// Engine reports the engine kind this handle was created with.
func (s *Server) Engine() Engine {
	return s.engine
}

// Address returns the remote endpoint, or "" once disposed.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.addr
}

// SetAddress updates the remote endpoint for subsequent operations. It
// is advisory: in-flight operations are unaffected.
func (s *Server) SetAddress(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addr = addr

	if s.goldsrc != nil {
		s.goldsrc = goldsrc.NewClient(addr, s.password, s.log)
	}
}

// SetPassword updates the RCON credential for subsequent operations.
func (s *Server) SetPassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.password = password

	switch s.engine {
	case GoldSrc:
		s.goldsrc = goldsrc.NewClient(s.addr, password, s.log)
	case Source:
		s.source = source.NewClient(password, s.log)
	}
}

// SetTimeout sets the default timeout, in milliseconds, for subsequent
// blocking operations. 0 and -1 both mean "no timeout"; values < -1 are
// rejected with errs.ErrInvalidTimeout.
func (s *Server) SetTimeout(timeoutMS int) error {
	if timeoutMS < -1 {
		return errs.ErrInvalidTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.timeoutMS = timeoutMS

	return nil
}

// IsDisposed reports whether Dispose has been called.
func (s *Server) IsDisposed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.disposed
}

// Dispose tears the handle down: stops any log receiver, disconnects any
// Source RCON session, and clears the remote address. It is idempotent;
// every operation after the first call returns errs.ErrDisposed.
func (s *Server) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil
	}

	s.disposed = true
	s.addr = ""

	if s.listener != nil {
		s.listener.Stop()
		s.listener = nil
	}

	if s.source != nil && s.source.IsConnected() {
		_ = s.source.DisconnectRCON()
	}

	return nil
}

func (s *Server) timeout() time.Duration {
	s.mu.RLock()
	ms := s.timeoutMS
	s.mu.RUnlock()

	if ms <= 0 {
		return 0
	}

	return time.Duration(ms) * time.Millisecond
}

// snapshot returns the fields needed to perform one operation under a
// single lock acquisition, and an error if the handle is disposed.
func (s *Server) snapshot() (addr string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.disposed {
		return "", errs.ErrDisposed
	}

	return s.addr, nil
}

// GetStatus sends `status` over RCON and parses the reply.
func (s *Server) GetStatus() (status.Info, error) {
	if _, err := s.snapshot(); err != nil {
		return status.Info{}, err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.GetStatus(s.timeout())
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return status.Info{}, err
		}

		return s.source.GetStatus(s.timeout())
	default:
		return status.Info{}, errs.ErrDisposed
	}
}
