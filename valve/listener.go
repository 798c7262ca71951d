package valve

import (
	"github.com/calyxforge/valveclient/errs"
	"github.com/calyxforge/valveclient/logparse"
)

// StartLogListener opens a per-server "connected UDP" socket to the
// handle's remote address and starts routing every datagram received
// from it through ProcessLog. Returns errs.ErrAlreadyListening if a
// listener is already open.
func (s *Server) StartLogListener() error {
	addr, err := s.snapshot()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errs.ErrAlreadyListening
	}

	s.listener = logparse.NewServerListener(s, s.log)

	if errListen := s.listener.Listen(addr); errListen != nil {
		s.listener = nil

		return errListen
	}

	return nil
}

// StopLogListener stops and releases the per-server log socket, if one
// is open. It is a no-op otherwise.
func (s *Server) StopLogListener() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return
	}

	s.listener.Stop()
	s.listener = nil
}
