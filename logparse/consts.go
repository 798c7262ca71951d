package logparse

// EventType enumerates every log-line shape this package recognizes,
// grouped loosely by the priority tier that produces it.
type EventType int

const (
	UnknownEvent EventType = iota

	// Tier 1-5: literal, fully-quoted leading keywords.
	CvarEvent
	RconEvent
	KickEvent
	TeamScoreEvent
	PlayerScoreEvent

	// Tier 6: two-player, two-verb interactions.
	KillEvent
	AttackEvent
	PlayerTriggeredEvent
	PrivateChatEvent

	// Tier 7: single-player, single-verb-plus-noun actions.
	JoinedTeamEvent
	ChangedRoleEvent
	SuicideEvent
	ChangedNameEvent
	PickedUpItemEvent
	SpawnedAsEvent
	SayTeamEvent
	SayEvent
	TriggeredActionEvent
	LeftBuyZoneEvent

	// Tier 8: single-player, unquoted text.
	ValidatedEvent
	EnteredEvent
	DisconnectedEvent

	// Tier 9: team, single-verb-plus-noun.
	TeamTriggeredEvent
	TeamAllianceEvent

	// Tier 10: server-wide, verb-phrase-plus-noun.
	WorldTriggeredEvent
	LoadingMapEvent
	StartedMapEvent
	ServerNameIsEvent
	ServerSayEvent

	// Tier 11: server-wide, verb-phrase only.
	CvarsStartEvent
	CvarsEndEvent
	LogFileStartedEvent
	LogFileClosedEvent
)

// eventCodes maps every EventType but UnknownEvent and RconEvent (whose code depends on
// whether the rcon attempt succeeded; see parser.go's tier2Rcon) to the
// three-digit HL Log Standard code, possibly with a sub-letter, that
// spec §3/§4.5 requires every Event to carry as Code.
var eventCodes = map[EventType]string{
	CvarEvent:        "001b",
	KickEvent:        "052b",
	TeamScoreEvent:   "065",
	PlayerScoreEvent: "067",

	KillEvent:            "057",
	AttackEvent:          "058",
	PlayerTriggeredEvent: "059",
	PrivateChatEvent:     "066",

	JoinedTeamEvent:      "050",
	ChangedRoleEvent:     "053",
	SuicideEvent:         "054",
	ChangedNameEvent:     "055",
	PickedUpItemEvent:    "056",
	SpawnedAsEvent:       "060",
	SayTeamEvent:         "063a",
	SayEvent:             "063b",
	TriggeredActionEvent: "068",
	LeftBuyZoneEvent:     "069",

	ValidatedEvent:    "050b",
	EnteredEvent:      "051",
	DisconnectedEvent: "052",

	TeamTriggeredEvent: "061",
	TeamAllianceEvent:  "064",

	WorldTriggeredEvent: "062",
	LoadingMapEvent:     "003a",
	StartedMapEvent:     "003b",
	ServerNameIsEvent:   "005",
	ServerSayEvent:      "006",

	CvarsStartEvent:     "001a",
	CvarsEndEvent:       "001c",
	LogFileStartedEvent: "002a",
	LogFileClosedEvent:  "002b",
}

//go:generate stringer -type=EventType

func (e EventType) String() string {
	switch e {
	case CvarEvent:
		return "CvarEvent"
	case RconEvent:
		return "RconEvent"
	case KickEvent:
		return "KickEvent"
	case TeamScoreEvent:
		return "TeamScoreEvent"
	case PlayerScoreEvent:
		return "PlayerScoreEvent"
	case KillEvent:
		return "KillEvent"
	case AttackEvent:
		return "AttackEvent"
	case PlayerTriggeredEvent:
		return "PlayerTriggeredEvent"
	case PrivateChatEvent:
		return "PrivateChatEvent"
	case JoinedTeamEvent:
		return "JoinedTeamEvent"
	case ChangedRoleEvent:
		return "ChangedRoleEvent"
	case SuicideEvent:
		return "SuicideEvent"
	case ChangedNameEvent:
		return "ChangedNameEvent"
	case PickedUpItemEvent:
		return "PickedUpItemEvent"
	case SpawnedAsEvent:
		return "SpawnedAsEvent"
	case SayTeamEvent:
		return "SayTeamEvent"
	case SayEvent:
		return "SayEvent"
	case TriggeredActionEvent:
		return "TriggeredActionEvent"
	case LeftBuyZoneEvent:
		return "LeftBuyZoneEvent"
	case ValidatedEvent:
		return "ValidatedEvent"
	case EnteredEvent:
		return "EnteredEvent"
	case DisconnectedEvent:
		return "DisconnectedEvent"
	case TeamTriggeredEvent:
		return "TeamTriggeredEvent"
	case TeamAllianceEvent:
		return "TeamAllianceEvent"
	case WorldTriggeredEvent:
		return "WorldTriggeredEvent"
	case LoadingMapEvent:
		return "LoadingMapEvent"
	case StartedMapEvent:
		return "StartedMapEvent"
	case ServerNameIsEvent:
		return "ServerNameIsEvent"
	case ServerSayEvent:
		return "ServerSayEvent"
	case CvarsStartEvent:
		return "CvarsStartEvent"
	case CvarsEndEvent:
		return "CvarsEndEvent"
	case LogFileStartedEvent:
		return "LogFileStartedEvent"
	case LogFileClosedEvent:
		return "LogFileClosedEvent"
	default:
		return "UnknownEvent"
	}
}
