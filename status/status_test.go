package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const goldSrcStatus = "hostname:  Old School Deathmatch\n" +
	"version :  1.1.2.2/Stdio 4554 secure\n" +
	"tcp/ip  :  10.0.0.5:27015\n" +
	"map     :  crossfire\n" +
	"players : 2 active (16 max)\n" +
	"\n" +
	"#      name userid uniqueid frag time ping loss adr\n" +
	"#1     \"Ranger\" 2 STEAM_0:1:23456 5 10:32 45 0 10.0.0.9:27005\n" +
	"#2     \"relay\" 3 HLTV hltv:1/8 delay:0.0 10.0.0.10:27020\n" +
	"2 users\n"

const sourceStatus = "hostname: Competitive Server\n" +
	"version : 1.38.0.0/24 6300758 secure\n" +
	"udp/ip : 10.0.0.5:27015\n" +
	"map : de_dust2\n" +
	"players : 10 humans, 2 bots (32 max)\n" +
	"\n" +
	"# userid name uniqueid connected ping loss state rate adr\n" +
	"#2 \"Player One\" 7 STEAM_1:0:456 05:23 45 0 active 128000 10.0.0.7:27005\n"

func TestParseGoldSrcStatus(t *testing.T) {
	info, err := Parse(goldSrcStatus)
	require.NoError(t, err)
	require.Equal(t, "Old School Deathmatch", info.Hostname)
	require.Equal(t, "crossfire", info.Map)
	require.Equal(t, 16, info.MaxPlayers)
	require.Equal(t, 2, info.UsersCount)
	require.Len(t, info.Users, 2)

	require.NotNil(t, info.Users[0].Normal)
	require.Equal(t, "Ranger", info.Users[0].Normal.Name)
	require.Equal(t, "STEAM_0:1:23456", info.Users[0].Normal.AuthID)

	require.NotNil(t, info.Users[1].Hltv)
	require.Equal(t, "HLTV", info.Users[1].Hltv.AuthID)
	require.Equal(t, 1, info.Users[1].Hltv.Spectators)
	require.Equal(t, 8, info.Users[1].Hltv.Slots)
}

func TestParseSourceStatus(t *testing.T) {
	info, err := Parse(sourceStatus)
	require.NoError(t, err)
	require.Equal(t, "Competitive Server", info.Hostname)
	require.Equal(t, "de_dust2", info.Map)
	require.Equal(t, 32, info.MaxPlayers)
	require.Equal(t, 0, info.UsersCount) // Source carries no trailing users line
	require.Len(t, info.Users, 1)
	require.Equal(t, "Player One", info.Users[0].Normal.Name)
}

func TestParseStatusNeitherDialect(t *testing.T) {
	_, err := Parse("not a status reply at all")
	require.Error(t, err)
}

func TestParseStatusDropsUnmatchedUserLines(t *testing.T) {
	raw := goldSrcStatus + "garbage line that matches no user pattern\n"

	info, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, info.Users, 2) // garbage line silently dropped
}
