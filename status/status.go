// Package status parses the textual output of the RCON `status` command
// into a structured record of server identity and connected users. Two
// regex dialects are supported — GoldSrc and Source — selected by trying
// GoldSrc first and falling back to Source, since the two header blocks
// are mutually exclusive on the `tcp/ip` vs `udp/ip` label.
package status

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"

	"github.com/calyxforge/valveclient/errs"
)

// UserHeader holds the fields common to every connected user, normal or
// HLTV/SourceTV, per the Design Notes' "shared header" recommendation for
// what the source models as an inheritance relationship.
type UserHeader struct {
	Name      string
	UserID    int
	AuthID    string
	SteamID   steamid.SteamID
	Connected time.Duration
	Address   string
}

// NormalUser is a regular connected player line.
type NormalUser struct {
	UserHeader
	Frags int
	Ping  int
	Loss  int
}

// HltvUser is the SourceTV/HLTV relay pseudo-user, distinguished by the
// literal auth id "HLTV" and a `hltv:<cur>/<max> delay:<sec>` tail instead
// of frag/ping/loss columns.
type HltvUser struct {
	UserHeader
	Spectators int
	Slots      int
	Delay      float64
}

// User is either a *NormalUser or an *HltvUser. Exactly one of the two
// fields is non-nil.
type User struct {
	Normal *NormalUser
	Hltv   *HltvUser
}

// Header returns the fields common to both variants.
func (u User) Header() UserHeader {
	if u.Hltv != nil {
		return u.Hltv.UserHeader
	}

	if u.Normal != nil {
		return u.Normal.UserHeader
	}

	return UserHeader{}
}

// Info is the parsed result of a `status` command reply.
type Info struct {
	Hostname   string
	Version    string
	Address    string
	Map        string
	Players    int
	MaxPlayers int
	// UsersCount is GoldSrc's distinct trailing "<N> users" tally. It is
	// left unset (0) on Source replies, which carry no such line. Per
	// Open Question 1, this is deliberately not coalesced with Players.
	UsersCount int
	Users      []User
	Raw        string
}

var (
	rxGoldSrcHeader = regexp.MustCompile(`(?m)^hostname:\s*(?P<hostname>.+?)\r?\n` +
		`version\s*:\s*(?P<version>.+?)\r?\n` +
		`tcp/ip\s*:\s+(?P<address>.+?)\r?\n` +
		`map\s*:\s+(?P<map>.+?)\r?\n` +
		`players\s*:\s*(?P<players>\d+)[^(\n]*\((?P<maxplayers>\d+)\s*max\)`)

	rxSourceHeader = regexp.MustCompile(`(?m)^hostname:\s*(?P<hostname>.+?)\r?\n` +
		`version\s*:\s*(?P<version>.+?)\r?\n` +
		`udp/ip\s*:\s+(?P<address>.+?)\r?\n` +
		`map\s*:\s+(?P<map>.+?)\r?\n` +
		`players\s*:.*?\((?P<maxplayers>\d+)\s*max\)`)

	rxTrailingUsers = regexp.MustCompile(`(?m)^(?P<count>\d+)\s+users?\s*$`)

	rxNormalUser = regexp.MustCompile(`^#\s*\d*\s*"?(?P<name>[^"]*?)"?\s+(?P<userid>\d+)\s+` +
		`(?P<authid>STEAM_\S+|\[U:\d:\d+\]|\d+)\s+(?:(?P<frags>-?\d+)\s+)?(?P<time>\d+:\d+(?::\d+)?)\s+` +
		`(?P<ping>\d+)\s+(?P<loss>\d+)\s+(?:\S+\s+\d+\s+)?(?P<address>\S+:\d+)\s*$`)

	rxHltvUser = regexp.MustCompile(`^#\s*\d*\s*"?(?P<name>[^"]*?)"?\s+(?P<userid>\d+)\s+HLTV\s+` +
		`hltv:(?P<spectators>\d+)/(?P<slots>\d+)\s+delay:(?P<delay>[\d.]+)\s+(?P<address>\S+:\d+)\s*$`)
)

// Parse parses a `status` command reply into an Info. It returns a
// *errs.FormatError if neither the GoldSrc nor the Source header pattern
// matches.
func Parse(raw string) (Info, error) {
	if match, ok := matchNamed(rxGoldSrcHeader, raw); ok {
		info := headerToInfo(match, raw)

		if userMatch, ok := matchNamed(rxTrailingUsers, raw); ok {
			info.UsersCount, _ = strconv.Atoi(userMatch["count"])
		}

		info.Users = parseUsers(raw)

		return info, nil
	}

	if match, ok := matchNamed(rxSourceHeader, raw); ok {
		info := headerToInfo(match, raw)
		info.Users = parseUsers(raw)

		return info, nil
	}

	return Info{}, &errs.FormatError{Input: raw}
}

func headerToInfo(match map[string]string, raw string) Info {
	maxPlayers, _ := strconv.Atoi(match["maxplayers"])

	return Info{
		Hostname:   strings.TrimSpace(match["hostname"]),
		Version:    strings.TrimSpace(match["version"]),
		Address:    strings.TrimSpace(match["address"]),
		Map:        strings.TrimSpace(match["map"]),
		MaxPlayers: maxPlayers,
		Raw:        raw,
	}
}

// parseUsers splits the body into lines and attempts each non-empty line
// first as a normal user, then as an HLTV line. Lines matching neither are
// silently dropped per §4.3.
func parseUsers(raw string) []User {
	var users []User

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if match, ok := matchNamed(rxNormalUser, line); ok {
			users = append(users, User{Normal: normalFromMatch(match)})

			continue
		}

		if match, ok := matchNamed(rxHltvUser, line); ok {
			users = append(users, User{Hltv: hltvFromMatch(match)})
		}
	}

	return users
}

func normalFromMatch(match map[string]string) *NormalUser {
	userID, _ := strconv.Atoi(match["userid"])
	frags, _ := strconv.Atoi(match["frags"])
	ping, _ := strconv.Atoi(match["ping"])
	loss, _ := strconv.Atoi(match["loss"])

	return &NormalUser{
		UserHeader: UserHeader{
			Name:      match["name"],
			UserID:    userID,
			AuthID:    match["authid"],
			SteamID:   steamid.New(match["authid"]),
			Connected: parseConnectedDuration(match["time"]),
			Address:   match["address"],
		},
		Frags: frags,
		Ping:  ping,
		Loss:  loss,
	}
}

func hltvFromMatch(match map[string]string) *HltvUser {
	userID, _ := strconv.Atoi(match["userid"])
	spectators, _ := strconv.Atoi(match["spectators"])
	slots, _ := strconv.Atoi(match["slots"])
	delay, _ := strconv.ParseFloat(match["delay"], 64)

	return &HltvUser{
		UserHeader: UserHeader{
			Name:    match["name"],
			UserID:  userID,
			AuthID:  "HLTV",
			Address: match["address"],
		},
		Spectators: spectators,
		Slots:      slots,
		Delay:      delay,
	}
}

// parseConnectedDuration accepts either mm:ss or hh:mm:ss.
func parseConnectedDuration(s string) time.Duration {
	parts := strings.Split(s, ":")

	var hours, minutes, seconds int

	switch len(parts) {
	case 2:
		minutes, _ = strconv.Atoi(parts[0])
		seconds, _ = strconv.Atoi(parts[1])
	case 3:
		hours, _ = strconv.Atoi(parts[0])
		minutes, _ = strconv.Atoi(parts[1])
		seconds, _ = strconv.Atoi(parts[2])
	default:
		return 0
	}

	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
}

func matchNamed(rx *regexp.Regexp, s string) (map[string]string, bool) {
	m := rx.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}

	out := make(map[string]string, len(m))

	for i, name := range rx.SubexpNames() {
		if i != 0 && name != "" {
			out[name] = m[i]
		}
	}

	return out, true
}
