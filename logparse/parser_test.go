package logparse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calyxforge/valveclient/errs"
)

func TestParsePlayerRoundTrip(t *testing.T) {
	player, ok := ParsePlayer(`Joe<15><STEAM_0:1:23456><Blue>`)
	require.True(t, ok)
	require.Equal(t, "Joe", player.Nick)
	require.Equal(t, 15, player.UID)
	require.Equal(t, "STEAM_0:1:23456", player.AuthID)
	require.Equal(t, "Blue", player.Team)
	require.Equal(t, `Joe<15><STEAM_0:1:23456><Blue>`, player.String())
}

func TestParsePlayerFailureSentinel(t *testing.T) {
	player, ok := ParsePlayer("not a player token")
	require.False(t, ok)
	require.Equal(t, -1, player.UID)
}

func TestParsePropsFlagAndValue(t *testing.T) {
	props := ParseProps(`(muted) (kills "182") (Kills "999")`)

	value, ok := props.Get("kills")
	require.True(t, ok)
	require.Equal(t, "999", value) // last writer wins, case-insensitively

	muted, ok := props.Get("MUTED")
	require.True(t, ok)
	require.Equal(t, "true", muted)
}

func TestParseEventPlayerOnPlayerKill(t *testing.T) {
	line := `L 01/01/2010 - 01:01:01: "A<15><STEAM_0:1:2><T1>" killed "B<4><STEAM_0:0:3><T2>" with "weapon"`

	parser := NewParser()

	event, ok, err := parser.Parse(line)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KillEvent, event.Type)
	require.Equal(t, "057", event.Code)
	require.Empty(t, event.Properties)

	triggerer, _ := event.Values["triggerer"].(Player)
	target, _ := event.Values["target"].(Player)
	require.Equal(t, "A", triggerer.Nick)
	require.Equal(t, "B", target.Nick)
	require.Equal(t, "weapon", event.Values["noun"])
}

func TestParseEventTeamScore(t *testing.T) {
	line := `L 01/01/2010 - 01:01:01: Team "Yellow" scored "73" with "5" players ` +
		`(kills "182") (kills_unaccounted "4") (deaths "217") (allies "<Red><Green>")`

	parser := NewParser()

	event, ok, err := parser.Parse(line)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, TeamScoreEvent, event.Type)
	require.Equal(t, "Yellow", event.Values["team"])
	require.Equal(t, 73, event.Values["score"])
	require.Equal(t, 5, event.Values["numPlayers"])

	kills, _ := event.Properties.Get("kills")
	require.Equal(t, "182", kills)

	allies, _ := event.Properties.Get("allies")
	require.Equal(t, "<Red><Green>", allies)
}

func TestParseRejectsInvalidDate(t *testing.T) {
	parser := NewParser()

	_, ok, err := parser.Parse(`L 02/30/2010 - 01:01:01: Server cvars start`)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = parser.Parse(`L 13/01/2010 - 01:01:01: Server cvars start`)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseDropsCommentLines(t *testing.T) {
	parser := NewParser()

	_, ok, err := parser.Parse(`L 01/01/2010 - 01:01:01: // a comment`)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseUnknownEventReportsError(t *testing.T) {
	parser := NewParser()

	_, ok, err := parser.Parse(`L 01/01/2010 - 01:01:01: nothing recognizable here`)
	require.False(t, ok)
	require.Error(t, err)

	var unknownErr *errs.UnknownEventError
	require.ErrorAs(t, err, &unknownErr)
}

func TestParseKick(t *testing.T) {
	line := `L 01/01/2010 - 01:01:01: Kick: "Griefer" was kicked by "Admin" (reason "cheating")`

	parser := NewParser()

	event, ok, err := parser.Parse(line)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KickEvent, event.Type)
	require.Equal(t, "Griefer", event.Values["player"])
	require.Equal(t, "Admin", event.Values["kicker"])

	reason, _ := event.Properties.Get("reason")
	require.Equal(t, "cheating", reason)
}

func TestParseCvarAndRconTiers(t *testing.T) {
	parser := NewParser()

	cvarEvent, ok, err := parser.Parse(`L 01/01/2010 - 01:01:01: Server cvar "mp_friendlyfire" = "1"`)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, CvarEvent, cvarEvent.Type)
	require.Equal(t, "mp_friendlyfire", cvarEvent.Values["key"])

	rconEvent, ok, err := parser.Parse(
		`L 01/01/2010 - 01:01:01: Rcon: "rcon 12345 "secret" status" from "10.0.0.1:27015"`)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, RconEvent, rconEvent.Type)
	require.Equal(t, true, rconEvent.Values["isGood"])
	require.Equal(t, "status", rconEvent.Values["command"])
}

func TestParseDecodeProjectsPlayerField(t *testing.T) {
	line := `L 01/01/2010 - 01:01:01: "Joe<15><STEAM_0:1:2><Blue>" entered the game`

	parser := NewParser()

	event, ok, err := parser.Parse(line)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, EnteredEvent, event.Type)

	var out struct {
		Player Player
	}

	require.NoError(t, event.Decode(&out))
	require.Equal(t, "Joe", out.Player.Nick)
}
