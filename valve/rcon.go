package valve

import (
	"github.com/pkg/errors"

	"github.com/calyxforge/valveclient/errs"
)

// ConnectRCON establishes the RCON session. For Source this dials and
// authenticates the TCP connection; for GoldSrc it acquires the initial
// challenge nonce (GoldSrc RCON has no persistent session to open).
func (s *Server) ConnectRCON() (bool, error) {
	addr, err := s.snapshot()
	if err != nil {
		return false, err
	}

	switch s.engine {
	case GoldSrc:
		if errChallenge := s.goldsrc.ChallengeRCON(s.timeout()); errChallenge != nil {
			return false, errChallenge
		}

		return true, nil
	case Source:
		return s.source.ConnectRCON(addr, s.timeout())
	default:
		return false, errs.ErrDisposed
	}
}

// DisconnectRCON tears down the RCON session. For GoldSrc this simply
// clears the challenge nonce; for Source it closes the TCP connection.
// Idempotent on both engines.
func (s *Server) DisconnectRCON() error {
	switch s.engine {
	case GoldSrc:
		if s.goldsrc != nil {
			s.goldsrc.Reset()
		}

		return nil
	case Source:
		if s.source == nil {
			return nil
		}

		return s.source.DisconnectRCON()
	default:
		return nil
	}
}

// ensureSourceConnected lazily dials and authenticates the Source RCON
// session the first time a query needs it, mirroring GoldSrc's implicit
// per-call challenge semantics.
func (s *Server) ensureSourceConnected() error {
	if s.source.IsConnected() {
		return nil
	}

	addr, err := s.snapshot()
	if err != nil {
		return err
	}

	_, errConnect := s.source.ConnectRCON(addr, s.timeout())

	return errConnect
}

// ExecRCON sends cmd and returns the collected reply text.
func (s *Server) ExecRCON(cmd string) (string, error) {
	if _, err := s.snapshot(); err != nil {
		return "", err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.QueryRCON(cmd, s.timeout())
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return "", err
		}

		return s.source.QueryRCON(cmd, s.timeout())
	default:
		return "", errs.ErrDisposed
	}
}

// SendRCON fires cmd without waiting for a reply. Source RCON has no
// fire-and-forget wire form, so this falls back to ExecRCON and discards
// the collected text.
func (s *Server) SendRCON(cmd string) error {
	if _, err := s.snapshot(); err != nil {
		return err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.SendRCON(cmd)
	case Source:
		_, err := s.ExecRCON(cmd)

		return err
	default:
		return errs.ErrDisposed
	}
}

// IsRCONPasswordValid verifies the configured password without raising
// for an auth failure. GoldSrc round-trips a random token through echo;
// Source attempts ConnectRCON and swallows errs.ErrBadRconPassword.
func (s *Server) IsRCONPasswordValid() (bool, error) {
	if _, err := s.snapshot(); err != nil {
		return false, err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.IsRCONPasswordValid(s.timeout())
	case Source:
		ok, err := s.ConnectRCON()
		if err != nil {
			if errors.Is(err, errs.ErrBadRconPassword) {
				return false, nil
			}

			return false, err
		}

		return ok, nil
	default:
		return false, errs.ErrDisposed
	}
}

// GetCvar returns a cvar's current value.
func (s *Server) GetCvar(name string) (string, error) {
	if _, err := s.snapshot(); err != nil {
		return "", err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.GetCvar(name, s.timeout())
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return "", err
		}

		return s.source.GetCvar(name, s.timeout())
	default:
		return "", errs.ErrDisposed
	}
}

// SetCvar sets a cvar's value.
func (s *Server) SetCvar(name, value string) error {
	if _, err := s.snapshot(); err != nil {
		return err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.SetCvar(name, value)
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return err
		}

		return s.source.SetCvar(name, value, s.timeout())
	default:
		return errs.ErrDisposed
	}
}

// IsLogging reports whether UDP logging is currently enabled.
func (s *Server) IsLogging() (bool, error) {
	if _, err := s.snapshot(); err != nil {
		return false, err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.IsLogging(s.timeout())
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return false, err
		}

		return s.source.IsLogging(s.timeout())
	default:
		return false, errs.ErrDisposed
	}
}

// StartLog enables UDP logging on the remote server.
func (s *Server) StartLog() error {
	if _, err := s.snapshot(); err != nil {
		return err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.StartLog()
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return err
		}

		return s.source.StartLog(s.timeout())
	default:
		return errs.ErrDisposed
	}
}

// StopLog disables UDP logging on the remote server.
func (s *Server) StopLog() error {
	if _, err := s.snapshot(); err != nil {
		return err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.StopLog()
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return err
		}

		return s.source.StopLog(s.timeout())
	default:
		return errs.ErrDisposed
	}
}

// GetLogAddresses lists the remote server's registered log destinations.
func (s *Server) GetLogAddresses() ([]string, error) {
	if _, err := s.snapshot(); err != nil {
		return nil, err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.GetLogAddresses(s.timeout())
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return nil, err
		}

		return s.source.GetLogAddresses(s.timeout())
	default:
		return nil, errs.ErrDisposed
	}
}

// AddLogAddress registers ip:port as a log destination on the remote
// server.
func (s *Server) AddLogAddress(ip, port string) error {
	if _, err := s.snapshot(); err != nil {
		return err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.AddLogAddress(ip, port, s.timeout())
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return err
		}

		return s.source.AddLogAddress(ip, port, s.timeout())
	default:
		return errs.ErrDisposed
	}
}

// DeleteLogAddress unregisters ip:port as a log destination on the
// remote server.
func (s *Server) DeleteLogAddress(ip, port string) error {
	if _, err := s.snapshot(); err != nil {
		return err
	}

	switch s.engine {
	case GoldSrc:
		return s.goldsrc.DeleteLogAddress(ip, port, s.timeout())
	case Source:
		if err := s.ensureSourceConnected(); err != nil {
			return err
		}

		return s.source.DeleteLogAddress(ip, port, s.timeout())
	default:
		return errs.ErrDisposed
	}
}
