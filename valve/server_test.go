package valve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calyxforge/valveclient/errs"
	"github.com/calyxforge/valveclient/logparse"
)

func TestSetTimeoutRejectsBelowNegativeOne(t *testing.T) {
	server := NewServer(GoldSrc, "127.0.0.1:27015", "secret", nil)

	require.NoError(t, server.SetTimeout(0))
	require.NoError(t, server.SetTimeout(-1))
	require.ErrorIs(t, server.SetTimeout(-2), errs.ErrInvalidTimeout)
}

func TestDisposeCascadesToEveryOperation(t *testing.T) {
	server := NewServer(GoldSrc, "127.0.0.1:27015", "secret", nil)

	require.NoError(t, server.Dispose())
	require.True(t, server.IsDisposed())
	require.Equal(t, "", server.Address())

	// Disposing twice is a no-op, not an error.
	require.NoError(t, server.Dispose())

	_, err := server.Ping()
	require.ErrorIs(t, err, errs.ErrDisposed)

	_, err = server.GetInfo()
	require.ErrorIs(t, err, errs.ErrDisposed)

	_, err = server.ExecRCON("status")
	require.ErrorIs(t, err, errs.ErrDisposed)

	err = server.StartLogListener()
	require.ErrorIs(t, err, errs.ErrDisposed)
}

func TestFetchSummaryPropagatesDisposed(t *testing.T) {
	server := NewServer(Source, "127.0.0.1:27015", "secret", nil)
	require.NoError(t, server.Dispose())

	_, err := server.FetchSummary(context.Background())
	require.ErrorIs(t, err, errs.ErrDisposed)
}

func TestProcessLogDispatchesTypedAndCatchAll(t *testing.T) {
	server := NewServer(GoldSrc, "127.0.0.1:27015", "secret", nil)

	var typedSeen, allSeen logparse.Event

	server.Subscribe(logparse.EnteredEvent, func(e logparse.Event) { typedSeen = e })
	server.SubscribeAll(func(e logparse.Event) { allSeen = e })

	line := `L 01/01/2010 - 01:01:01: "Joe<15><STEAM_0:1:2><Blue>" entered the game`
	server.ProcessLog([]byte(line))

	require.Equal(t, logparse.EnteredEvent, typedSeen.Type)
	require.Equal(t, logparse.EnteredEvent, allSeen.Type)
}

func TestProcessLogRoutesUnknownLineToException(t *testing.T) {
	server := NewServer(GoldSrc, "127.0.0.1:27015", "secret", nil)

	exceptions := make(chan error, 1)
	server.OnException(func(err error) { exceptions <- err })

	server.ProcessLog([]byte(`L 01/01/2010 - 01:01:01: nothing recognizable`))

	select {
	case err := <-exceptions:
		var unknownErr *errs.UnknownEventError
		require.ErrorAs(t, err, &unknownErr)
	case <-time.After(time.Second):
		t.Fatal("exception callback never fired")
	}
}

func TestProcessLogRecoversSubscriberPanic(t *testing.T) {
	server := NewServer(GoldSrc, "127.0.0.1:27015", "secret", nil)

	caught := make(chan error, 1)
	server.OnException(func(err error) { caught <- err })
	server.SubscribeAll(func(logparse.Event) { panic("boom") })

	line := `L 01/01/2010 - 01:01:01: "Joe<15><STEAM_0:1:2><Blue>" entered the game`
	server.ProcessLog([]byte(line))

	select {
	case err := <-caught:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("panic was not routed to the exception callback")
	}
}

func TestStartLogListenerAlreadyListening(t *testing.T) {
	server := NewServer(GoldSrc, "127.0.0.1:0", "secret", nil)

	require.NoError(t, server.StartLogListener())
	defer server.StopLogListener()

	require.ErrorIs(t, server.StartLogListener(), errs.ErrAlreadyListening)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	server := NewServer(GoldSrc, "127.0.0.1:27015", "secret", nil)

	calls := 0
	unsubscribe := server.SubscribeAll(func(logparse.Event) { calls++ })

	line := `L 01/01/2010 - 01:01:01: "Joe<15><STEAM_0:1:2><Blue>" entered the game`
	server.ProcessLog([]byte(line))
	require.Equal(t, 1, calls)

	unsubscribe()

	server.ProcessLog([]byte(line))
	require.Equal(t, 1, calls)
}
