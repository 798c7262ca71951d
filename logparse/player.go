package logparse

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

var rxPlayer = regexp.MustCompile(`^(?P<nick>.+)<(?P<uid>\d+)><(?P<authid>[^<>]*)><(?P<team>[^<>]*)>$`)

// Player is the common textual player token found throughout the log
// line grammar: `<nick><<uid>><<authid>><<team>>`.
type Player struct {
	Nick    string
	UID     int
	AuthID  string
	Team    string
	SteamID steamid.SteamID
}

// emptyPlayer is the sentinel returned on a failed parse, per §3: uid −1,
// every other field zero-valued.
func emptyPlayer() Player {
	return Player{UID: -1}
}

// ParsePlayer parses the `<nick><uid><authid><team>` token (without its
// surrounding log-syntax quotes). On failure it returns the empty
// sentinel Player and false.
func ParsePlayer(s string) (Player, bool) {
	match := rxPlayer.FindStringSubmatch(s)
	if match == nil {
		return emptyPlayer(), false
	}

	uid, errConv := strconv.Atoi(match[2])
	if errConv != nil {
		return emptyPlayer(), false
	}

	return Player{
		Nick:    match[1],
		UID:     uid,
		AuthID:  match[3],
		Team:    match[4],
		SteamID: steamid.New(match[3]),
	}, true
}

// String renders the player back into its wire token, inverse of
// ParsePlayer.
func (p Player) String() string {
	return fmt.Sprintf("%s<%d><%s><%s>", p.Nick, p.UID, p.AuthID, p.Team)
}
