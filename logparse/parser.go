package logparse

import (
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/calyxforge/valveclient/errs"
)

const (
	dateLayout = "01/02/2006"
	timeLayout = "15:04:05"
)

var rxMasterLine = regexp.MustCompile(`^L (\d{2}/\d{2}/\d{4}) - (\d{2}:\d{2}:\d{2}): (.*)$`)

var (
	rxCvar = regexp.MustCompile(`^Server cvar "([^"]*)" = "([^"]*)"(.*)$`)
	rxRcon = regexp.MustCompile(`^(Bad )?Rcon: "(.+)" from "([^"]*)"(.*)$`)
	rxRconBody = regexp.MustCompile(`^rcon (\d+) "([^"]*)" (.*)$`)
	rxKick = regexp.MustCompile(`^Kick: "([^"]*)" was kicked by "([^"]*)"(.*)$`)
	rxTeamScore = regexp.MustCompile(`^Team "([^"]*)" scored "(\d+)" with "(\d+)" players(.*)$`)
	rxPlayerScore = regexp.MustCompile(`^Player "([^"]*)" scored "(\d+)"(.*)$`)

	rxPlayerOnPlayer = regexp.MustCompile(`^"([^"]*)" (killed|attacked|triggered|tell) "([^"]*)" (\S+) "([^"]*)"(.*)$`)

	rxPlayerAction = regexp.MustCompile(`^"([^"]*)" (joined team|changed role to|committed suicide with|` +
		`changed name to|picked up item|spawned as|say_team|say|triggered|left buyzone with) "([^"]*)"(.*)$`)

	rxPlayerEvent = regexp.MustCompile(`^"([^"]*)" (STEAM USERID validated|entered the game|disconnected)(.*)$`)

	rxTeamEvent = regexp.MustCompile(`^Team "([^"]*)" (triggered|formed alliance with team) "([^"]*)"(.*)$`)

	rxServerEvent = regexp.MustCompile(`^(World triggered|Loading map|Started map|Server name is|Server say) "([^"]*)"(.*)$`)

	rxInfoEvent = regexp.MustCompile(`^(Server cvars start|Server cvars end|Log file started|Log file closed)(.*)$`)
)

var playerActionCodes = map[string]EventType{
	"joined team":             JoinedTeamEvent,
	"changed role to":         ChangedRoleEvent,
	"committed suicide with":  SuicideEvent,
	"changed name to":         ChangedNameEvent,
	"picked up item":          PickedUpItemEvent,
	"spawned as":              SpawnedAsEvent,
	"say_team":                SayTeamEvent,
	"say":                     SayEvent,
	"triggered":               TriggeredActionEvent,
	"left buyzone with":       LeftBuyZoneEvent,
}

var playerEventCodes = map[string]EventType{
	"STEAM USERID validated": ValidatedEvent,
	"entered the game":       EnteredEvent,
	"disconnected":           DisconnectedEvent,
}

var teamEventCodes = map[string]EventType{
	"triggered":                    TeamTriggeredEvent,
	"formed alliance with team":    TeamAllianceEvent,
}

var serverEventCodes = map[string]EventType{
	"World triggered":  WorldTriggeredEvent,
	"Loading map":      LoadingMapEvent,
	"Started map":      StartedMapEvent,
	"Server name is":   ServerNameIsEvent,
	"Server say":       ServerSayEvent,
}

var infoEventCodes = map[string]EventType{
	"Server cvars start": CvarsStartEvent,
	"Server cvars end":   CvarsEndEvent,
	"Log file started":   LogFileStartedEvent,
	"Log file closed":    LogFileClosedEvent,
}

var playerOnPlayerVerbs = map[string]EventType{
	"killed":    KillEvent,
	"attacked":  AttackEvent,
	"triggered": PlayerTriggeredEvent,
	"tell":      PrivateChatEvent,
}

// Parser classifies log payloads into Events. It is stateless and safe
// for concurrent use; one Parser is shared by every Listener.
type Parser struct{}

// NewParser returns a ready-to-use Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse matches raw against the master `L <date> - <time>: <payload>`
// frame and, on success, classifies the payload in strict priority
// order. Non-matching input (including "//"-prefixed comments) is
// silently dropped — Parse returns (Event{}, false, nil) for it. A
// payload that matches the outer frame but no inner pattern returns
// (Event{}, false, *errs.UnknownEventError) for the caller to forward to
// a listener's exception channel.
func (p *Parser) Parse(raw string) (Event, bool, error) {
	match := rxMasterLine.FindStringSubmatch(raw)
	if match == nil {
		return Event{}, false, nil
	}

	occurred, ok := parseLogDateTime(match[1], match[2])
	if !ok {
		return Event{}, false, nil
	}

	payload := match[3]
	if strings.HasPrefix(payload, "//") {
		return Event{}, false, nil
	}

	event, ok := p.classify(payload)
	if !ok {
		return Event{}, false, &errs.UnknownEventError{Line: raw}
	}

	event.Raw = raw
	event.Occurred = occurred

	return event, true, nil
}

// classify tries each priority tier in order and commits to the first
// that matches.
func (p *Parser) classify(payload string) (Event, bool) {
	if ev, ok := p.tier1Cvar(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier2Rcon(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier3Kick(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier4TeamScore(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier5PlayerScore(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier6PlayerOnPlayer(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier7PlayerAction(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier8PlayerEvent(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier9TeamEvent(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier10ServerEvent(payload); ok {
		return ev, true
	}

	if ev, ok := p.tier11InfoEvent(payload); ok {
		return ev, true
	}

	return Event{}, false
}

func (p *Parser) tier1Cvar(payload string) (Event, bool) {
	match := rxCvar.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	return Event{
		Type:       CvarEvent,
		Code:       eventCodes[CvarEvent],
		Properties: ParseProps(match[3]),
		Values: map[string]any{
			"key":   match[1],
			"value": match[2],
		},
	}, true
}

func (p *Parser) tier2Rcon(payload string) (Event, bool) {
	match := rxRcon.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	isGood := match[1] == ""
	sender := parseSenderEndpoint(match[3])

	values := map[string]any{
		"sender":  sender,
		"isGood":  isGood,
		"command": match[2],
	}

	if body := rxRconBody.FindStringSubmatch(match[2]); body != nil {
		values["challenge"] = body[1]
		values["password"] = body[2]
		values["command"] = body[3]
	}

	code := "004a"
	if !isGood {
		code = "004b"
	}

	return Event{
		Type:       RconEvent,
		Code:       code,
		Properties: ParseProps(match[4]),
		Values:     values,
	}, true
}

func (p *Parser) tier3Kick(payload string) (Event, bool) {
	match := rxKick.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	return Event{
		Type:       KickEvent,
		Code:       eventCodes[KickEvent],
		Properties: ParseProps(match[3]),
		Values: map[string]any{
			"player": match[1],
			"kicker": match[2],
		},
	}, true
}

func (p *Parser) tier4TeamScore(payload string) (Event, bool) {
	match := rxTeamScore.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	score, _ := strconv.Atoi(match[2])
	numPlayers, _ := strconv.Atoi(match[3])

	return Event{
		Type:       TeamScoreEvent,
		Code:       eventCodes[TeamScoreEvent],
		Properties: ParseProps(match[4]),
		Values: map[string]any{
			"team":       match[1],
			"score":      score,
			"numPlayers": numPlayers,
		},
	}, true
}

func (p *Parser) tier5PlayerScore(payload string) (Event, bool) {
	match := rxPlayerScore.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	score, _ := strconv.Atoi(match[2])

	return Event{
		Type:       PlayerScoreEvent,
		Code:       eventCodes[PlayerScoreEvent],
		Properties: ParseProps(match[3]),
		Values: map[string]any{
			"player": match[1],
			"score":  score,
		},
	}, true
}

// tier6PlayerOnPlayer implements the verb1/verb2 disambiguation: the
// second token is tried as a Player first; if it doesn't parse, the
// fifth token is treated as the Player and the third as the noun.
func (p *Parser) tier6PlayerOnPlayer(payload string) (Event, bool) {
	match := rxPlayerOnPlayer.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	eventType, known := playerOnPlayerVerbs[match[2]]
	if !known {
		return Event{}, false
	}

	triggerer, _ := ParsePlayer(match[1])

	var target Player

	var noun string

	if parsed, ok := ParsePlayer(match[3]); ok {
		target = parsed
		noun = match[5]
	} else {
		target, _ = ParsePlayer(match[5])
		noun = match[3]
	}

	return Event{
		Type:       eventType,
		Code:       eventCodes[eventType],
		Properties: ParseProps(match[6]),
		Values: map[string]any{
			"triggerer": triggerer,
			"target":    target,
			"verb2":     match[4],
			"noun":      noun,
		},
	}, true
}

func (p *Parser) tier7PlayerAction(payload string) (Event, bool) {
	match := rxPlayerAction.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	eventType, known := playerActionCodes[match[2]]
	if !known {
		return Event{}, false
	}

	player, _ := ParsePlayer(match[1])

	return Event{
		Type:       eventType,
		Code:       eventCodes[eventType],
		Properties: ParseProps(match[4]),
		Values: map[string]any{
			"player": player,
			"noun":   match[3],
		},
	}, true
}

func (p *Parser) tier8PlayerEvent(payload string) (Event, bool) {
	match := rxPlayerEvent.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	eventType, known := playerEventCodes[match[2]]
	if !known {
		return Event{}, false
	}

	player, _ := ParsePlayer(match[1])

	return Event{
		Type:       eventType,
		Code:       eventCodes[eventType],
		Properties: ParseProps(match[3]),
		Values: map[string]any{
			"player": player,
		},
	}, true
}

func (p *Parser) tier9TeamEvent(payload string) (Event, bool) {
	match := rxTeamEvent.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	eventType, known := teamEventCodes[match[2]]
	if !known {
		return Event{}, false
	}

	return Event{
		Type:       eventType,
		Code:       eventCodes[eventType],
		Properties: ParseProps(match[4]),
		Values: map[string]any{
			"team": match[1],
			"noun": match[3],
		},
	}, true
}

func (p *Parser) tier10ServerEvent(payload string) (Event, bool) {
	match := rxServerEvent.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	eventType, known := serverEventCodes[match[1]]
	if !known {
		return Event{}, false
	}

	return Event{
		Type:       eventType,
		Code:       eventCodes[eventType],
		Properties: ParseProps(match[3]),
		Values: map[string]any{
			"noun": match[2],
		},
	}, true
}

func (p *Parser) tier11InfoEvent(payload string) (Event, bool) {
	match := rxInfoEvent.FindStringSubmatch(payload)
	if match == nil {
		return Event{}, false
	}

	eventType, known := infoEventCodes[match[1]]
	if !known {
		return Event{}, false
	}

	return Event{
		Type:       eventType,
		Code:       eventCodes[eventType],
		Properties: ParseProps(match[2]),
		Values:     map[string]any{},
	}, true
}

// parseSenderEndpoint splits an "ip:port" sender token. Either half
// failing to parse yields "none" per §4.5's tolerance note.
func parseSenderEndpoint(s string) string {
	host, port, errSplit := net.SplitHostPort(s)
	if errSplit != nil {
		return "none"
	}

	if net.ParseIP(host) == nil {
		return "none"
	}

	if _, errConv := strconv.Atoi(port); errConv != nil {
		return "none"
	}

	return s
}

// parseLogDateTime strictly validates MM/dd/yyyy and HH:mm:ss. time.Parse
// itself rejects out-of-range fields such as 02/30/2010 or 13/01/2010; the
// parsed time is then formatted back through the same layouts and
// compared, so any input whose canonical form differs is rejected too.
func parseLogDateTime(dateStr string, timeStr string) (time.Time, bool) {
	t, errParse := time.Parse(dateLayout+" "+timeLayout, dateStr+" "+timeStr)
	if errParse != nil {
		return time.Time{}, false
	}

	if t.Format(dateLayout) != dateStr || t.Format(timeLayout) != timeStr {
		return time.Time{}, false
	}

	return t, true
}
