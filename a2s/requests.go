package a2s

import "time"

const (
	reqPing      = 0x69
	reqChallenge = 0x55
	reqInfo      = 0x54
	reqPlayer    = 0x55
	reqRules     = 0x56

	respChallenge  = 0x41
	respInfoSource = 0x49
	respInfoGold   = 0x6D
	respPlayer     = 0x44
	respRules      = 0x45

	infoQueryString = "Source Engine Query\x00"

	// emptyChallenge is the sentinel the server returns for a challenge it
	// doesn't have yet, interpreted as signed -1 on the wire (§8).
	emptyChallenge = -1
)

func singlePacketHeader() []byte {
	return []byte{0xFF, 0xFF, 0xFF, 0xFF}
}

func pingRequest() []byte {
	return append(singlePacketHeader(), reqPing)
}

func challengeRequest() []byte {
	return append(singlePacketHeader(), reqChallenge, 0xFF, 0xFF, 0xFF, 0xFF)
}

func infoRequest() []byte {
	return append(singlePacketHeader(), append([]byte{reqInfo}, []byte(infoQueryString)...)...)
}

func playersRequest(challenge int32) []byte {
	return append(singlePacketHeader(), append([]byte{reqPlayer}, challengeBytes(challenge)...)...)
}

func rulesRequest(challenge int32) []byte {
	return append(singlePacketHeader(), append([]byte{reqRules}, challengeBytes(challenge)...)...)
}

func challengeBytes(c int32) []byte {
	u := uint32(c)

	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

// Info sends A2S_INFO and returns the parsed ServerInfo.
func (t *Transport) Info(addr string, timeout time.Duration) (ServerInfo, error) {
	resp, err := t.Query(addr, infoRequest(), timeout)
	if err != nil {
		return ServerInfo{}, err
	}

	return ParseServerInfo(resp)
}

// Players performs the two-roundtrip challenge handshake and returns the
// connected player list.
func (t *Transport) Players(addr string, timeout time.Duration) ([]PlayerInfo, error) {
	challenge, errChallenge := t.Challenge(addr, timeout)
	if errChallenge != nil {
		return nil, errChallenge
	}

	if challenge == emptyChallenge {
		return nil, errBadQueryChallenge()
	}

	resp, errQuery := t.Query(addr, playersRequest(challenge), timeout)
	if errQuery != nil {
		return nil, errQuery
	}

	return ParsePlayers(resp)
}

// Rules performs the two-roundtrip challenge handshake and returns the
// server's cvar rules as key/value pairs.
func (t *Transport) Rules(addr string, timeout time.Duration) ([]Rule, error) {
	challenge, errChallenge := t.Challenge(addr, timeout)
	if errChallenge != nil {
		return nil, errChallenge
	}

	if challenge == emptyChallenge {
		return nil, errBadQueryChallenge()
	}

	resp, errQuery := t.Query(addr, rulesRequest(challenge), timeout)
	if errQuery != nil {
		return nil, errQuery
	}

	return ParseRules(resp)
}
