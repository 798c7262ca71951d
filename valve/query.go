package valve

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/calyxforge/valveclient/a2s"
)

// Ping reports whether the server answered an A2S ping within the
// handle's timeout. Per §7, a timeout normalizes to false rather than
// an error; any other I/O failure propagates.
func (s *Server) Ping() (bool, error) {
	addr, err := s.snapshot()
	if err != nil {
		return false, err
	}

	return s.transport.Ping(addr, s.timeout())
}

// GetInfo sends A2S_INFO and returns the parsed ServerInfo.
func (s *Server) GetInfo() (a2s.ServerInfo, error) {
	addr, err := s.snapshot()
	if err != nil {
		return a2s.ServerInfo{}, err
	}

	return s.transport.Info(addr, s.timeout())
}

// GetPlayers performs the two-roundtrip challenge handshake and returns
// the connected player list.
func (s *Server) GetPlayers() ([]a2s.PlayerInfo, error) {
	addr, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	return s.transport.Players(addr, s.timeout())
}

// GetRules performs the two-roundtrip challenge handshake and returns
// the server's cvar rules as key/value pairs.
func (s *Server) GetRules() ([]a2s.Rule, error) {
	addr, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	return s.transport.Rules(addr, s.timeout())
}

// Summary is the result of a combined Info/Players/Rules fetch.
type Summary struct {
	Info    a2s.ServerInfo
	Players []a2s.PlayerInfo
	Rules   []a2s.Rule
}

// FetchSummary runs GetInfo, GetPlayers, and GetRules concurrently and
// returns once all three have completed; if any failed, it returns the
// first error and an empty Summary. A failure does not cancel the others.
// Callers that don't need all three should call the individual methods
// instead; this exists for dashboards that refresh all of them at once.
func (s *Server) FetchSummary(ctx context.Context) (Summary, error) {
	if _, err := s.snapshot(); err != nil {
		return Summary{}, err
	}

	var summary Summary

	group, _ := errgroup.WithContext(ctx)

	group.Go(func() error {
		info, errInfo := s.GetInfo()
		if errInfo != nil {
			return errInfo
		}

		summary.Info = info

		return nil
	})

	group.Go(func() error {
		players, errPlayers := s.GetPlayers()
		if errPlayers != nil {
			return errPlayers
		}

		summary.Players = players

		return nil
	})

	group.Go(func() error {
		rules, errRules := s.GetRules()
		if errRules != nil {
			return errRules
		}

		summary.Rules = rules

		return nil
	})

	if err := group.Wait(); err != nil {
		return Summary{}, err
	}

	return summary, nil
}
