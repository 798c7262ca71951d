package a2s

import (
	"github.com/calyxforge/valveclient/errs"
	"github.com/calyxforge/valveclient/wire"
)

// PlayerInfo is one entry of an A2S_PLAYER response: binary player data,
// distinct from the textual UserInfo parsed out of RCON `status` output.
type PlayerInfo struct {
	Index    byte
	Name     string
	Kills    int32
	Duration float32 // seconds
}

// ParsePlayers parses an A2S_PLAYER response payload (header already
// stripped): response-type byte, count byte, then that many PlayerInfo
// records.
func ParsePlayers(data []byte) ([]PlayerInfo, error) {
	if len(data) < 2 || data[0] != respPlayer {
		return nil, &errs.FormatError{Input: string(data)}
	}

	count := int(data[1])
	offset := 2

	players := make([]PlayerInfo, 0, count)

	for i := 0; i < count; i++ {
		if offset >= len(data) {
			return nil, &errs.FormatError{Input: string(data)}
		}

		var player PlayerInfo

		player.Index = data[offset]
		offset++

		player.Name, offset = wire.ReadCString(data, offset)

		if !wire.HasBytes(data, offset, 8) {
			return nil, &errs.FormatError{Input: string(data)}
		}

		player.Kills = wire.ReadInt32(data, offset)
		offset += 4
		player.Duration = wire.ReadFloat32(data, offset)
		offset += 4

		players = append(players, player)
	}

	return players, nil
}
