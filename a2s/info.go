package a2s

import (
	"github.com/calyxforge/valveclient/errs"
	"github.com/calyxforge/valveclient/wire"
)

// Extra Data Flags bits on the Source ServerInfo variant.
const (
	edfPort      = 0x80
	edfSteamID   = 0x10
	edfSourceTV  = 0x40
	edfKeywords  = 0x20
	edfGameID    = 0x01
)

// SourceTVInfo describes the SourceTV/HLTV relay advertised in a Source
// ServerInfo's extra data, when present (EDF bit 0x40).
type SourceTVInfo struct {
	Port uint16
	Name string
}

// ModInfo is the GoldSrc mod-info sub-record, present only when the
// GoldSrc ServerInfo's IsMod flag is set.
type ModInfo struct {
	URL            string
	DownloadURL    string
	Version        int32
	Size           int32
	ServerOnly     bool
	CustomClientDLL bool
}

// ServerInfo is the union of the Source (0x49) and GoldSrc (0x6D)
// A2S_INFO response variants, keyed by Variant.
type ServerInfo struct {
	Variant byte // respInfoSource or respInfoGold

	Protocol byte
	Name     string
	Map      string
	Folder   string
	Game     string

	// GoldSrc only.
	GameIP string

	// Source only.
	AppID int16

	Players    byte
	MaxPlayers byte
	Bots       byte
	Dedicated  byte
	OS         byte
	Password   bool
	Secure     bool

	// Source only.
	Version  string
	EDF      byte
	GamePort uint16
	SteamID  uint64
	SourceTV SourceTVInfo
	Keywords string
	GameID   uint64

	// GoldSrc only.
	IsMod bool
	Mod   ModInfo
}

// ParseServerInfo parses an A2S_INFO response payload (header already
// stripped) into a ServerInfo, dispatching on the leading type byte per
// the §3 field table.
func ParseServerInfo(data []byte) (ServerInfo, error) {
	if len(data) < 5 {
		return ServerInfo{}, &errs.FormatError{Input: string(data)}
	}

	variant := data[0]

	switch variant {
	case respInfoSource:
		return parseSourceInfo(data)
	case respInfoGold:
		return parseGoldSrcInfo(data)
	default:
		return ServerInfo{}, &errs.FormatError{Input: string(data)}
	}
}

func parseSourceInfo(data []byte) (ServerInfo, error) {
	info := ServerInfo{Variant: respInfoSource}
	offset := 1

	info.Protocol = data[offset]
	offset++

	info.Name, offset = wire.ReadCString(data, offset)
	info.Map, offset = wire.ReadCString(data, offset)
	info.Folder, offset = wire.ReadCString(data, offset)
	info.Game, offset = wire.ReadCString(data, offset)

	if !wire.HasBytes(data, offset, 2) {
		return ServerInfo{}, &errs.FormatError{Input: string(data)}
	}
	info.AppID = wire.ReadInt16(data, offset)
	offset += 2

	if !wire.HasBytes(data, offset, 7) {
		return ServerInfo{}, &errs.FormatError{Input: string(data)}
	}
	info.Players = data[offset]
	offset++
	info.MaxPlayers = data[offset]
	offset++
	info.Bots = data[offset]
	offset++
	info.Dedicated = data[offset]
	offset++
	info.OS = data[offset]
	offset++
	info.Password = data[offset] != 0
	offset++
	info.Secure = data[offset] != 0
	offset++

	info.Version, offset = wire.ReadCString(data, offset)

	if offset >= len(data) {
		return info, nil
	}

	info.EDF = data[offset]
	offset++

	if info.EDF&edfPort != 0 && wire.HasBytes(data, offset, 2) {
		info.GamePort = wire.ReadUint16(data, offset)
		offset += 2
	}

	if info.EDF&edfSteamID != 0 && wire.HasBytes(data, offset, 8) {
		info.SteamID = wire.ReadUint64(data, offset)
		offset += 8
	}

	if info.EDF&edfSourceTV != 0 && wire.HasBytes(data, offset, 2) {
		info.SourceTV.Port = wire.ReadUint16(data, offset)
		offset += 2
		info.SourceTV.Name, offset = wire.ReadCString(data, offset)
	}

	if info.EDF&edfKeywords != 0 {
		info.Keywords, offset = wire.ReadCString(data, offset)
	}

	if info.EDF&edfGameID != 0 && wire.HasBytes(data, offset, 8) {
		info.GameID = wire.ReadUint64(data, offset)
	}

	return info, nil
}

func parseGoldSrcInfo(data []byte) (ServerInfo, error) {
	info := ServerInfo{Variant: respInfoGold}
	offset := 1

	info.GameIP, offset = wire.ReadCString(data, offset)
	info.Name, offset = wire.ReadCString(data, offset)
	info.Map, offset = wire.ReadCString(data, offset)
	info.Folder, offset = wire.ReadCString(data, offset)
	info.Game, offset = wire.ReadCString(data, offset)

	if !wire.HasBytes(data, offset, 2) {
		return ServerInfo{}, &errs.FormatError{Input: string(data)}
	}
	info.Players = data[offset]
	offset++
	info.MaxPlayers = data[offset]
	offset++

	if !wire.HasBytes(data, offset, 4) {
		return ServerInfo{}, &errs.FormatError{Input: string(data)}
	}
	info.Protocol = data[offset]
	offset++
	info.Dedicated = data[offset]
	offset++
	info.OS = data[offset]
	offset++
	info.Password = data[offset] != 0
	offset++

	if offset >= len(data) {
		return ServerInfo{}, &errs.FormatError{Input: string(data)}
	}
	info.IsMod = data[offset] != 0
	offset++

	if info.IsMod {
		info.Mod.URL, offset = wire.ReadCString(data, offset)
		info.Mod.DownloadURL, offset = wire.ReadCString(data, offset)

		// discarded NUL separator byte.
		if offset < len(data) {
			offset++
		}

		if !wire.HasBytes(data, offset, 8) {
			return ServerInfo{}, &errs.FormatError{Input: string(data)}
		}
		info.Mod.Version = wire.ReadInt32(data, offset)
		offset += 4
		info.Mod.Size = wire.ReadInt32(data, offset)
		offset += 4

		if !wire.HasBytes(data, offset, 2) {
			return ServerInfo{}, &errs.FormatError{Input: string(data)}
		}
		info.Mod.ServerOnly = data[offset] != 0
		offset++
		info.Mod.CustomClientDLL = data[offset] != 0
		offset++
	}

	if offset >= len(data) {
		return ServerInfo{}, &errs.FormatError{Input: string(data)}
	}
	info.Secure = data[offset] != 0
	offset++

	if offset < len(data) {
		info.Bots = data[offset]
	}

	return info, nil
}
