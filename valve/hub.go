package valve

import (
	"go.uber.org/zap"

	"github.com/calyxforge/valveclient/errs"
	"github.com/calyxforge/valveclient/logparse"
)

// LogHub is the shared form from §4.6: one local UDP socket
// demultiplexing incoming log datagrams by source endpoint to a mapping
// of remote endpoint -> Server handle. Unlike logparse.Listener (which
// it wraps), AddServer/RemoveServer take Server handles directly so that
// a disposed handle can be rejected rather than silently forwarded.
type LogHub struct {
	listener *logparse.Listener
}

// NewLogHub returns an empty LogHub. onException, if non-nil, receives
// any error escaping a bound Server's log pipeline.
func NewLogHub(onException func(error), log *zap.Logger) *LogHub {
	return &LogHub{listener: logparse.NewListener(onException, log)}
}

// AddServer binds server's remote address to server itself: datagrams
// arriving from that address are handed to server.ProcessLog.
func (h *LogHub) AddServer(server *Server) error {
	addr, err := server.snapshot()
	if err != nil {
		return err
	}

	h.listener.AddServer(addr, server)

	return nil
}

// RemoveServer unbinds server's remote address. Per §4.6, removing a
// disposed server is an error rather than a silent no-op.
func (h *LogHub) RemoveServer(server *Server) error {
	if server.IsDisposed() {
		return errs.ErrDisposed
	}

	h.listener.RemoveServer(server.Address())

	return nil
}

// Listen opens the shared UDP socket at localAddr.
func (h *LogHub) Listen(localAddr string) error {
	return h.listener.Listen(localAddr)
}

// Stop shuts down and closes the shared socket. Per §4.6's teardown
// ordering, callers should Stop the hub before disposing the Servers
// bound to it.
func (h *LogHub) Stop() {
	h.listener.Stop()
}
