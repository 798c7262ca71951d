package logparse

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Event is the result of parsing one log line: a header common to every
// kind (the raw line, the classified kind, and the property bag) plus a
// map of whatever named capture groups that kind's pattern produced.
// Callers who want a typed projection of a specific kind's fields use
// Decode rather than indexing Values by hand.
type Event struct {
	Type       EventType
	Code       string
	Raw        string
	Occurred   time.Time
	Properties Props
	Values     map[string]any
}

// Decode projects Values (and Properties, merged in under their own
// keys) onto out using mapstructure, generalizing the teacher's
// Unmarshal mechanism to this package's event taxonomy. It does not
// change what was extracted or its string representation; it only
// offers a typed view of the same data.
func (e Event) Decode(out any) error {
	input := make(map[string]any, len(e.Values)+len(e.Properties))

	for k, v := range e.Values {
		input[k] = v
	}

	for k, v := range e.Properties {
		input[k] = v
	}

	decoder, errNew := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decodePlayerHook(),
			decodeDurationHook(),
		),
		Result:           out,
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if errNew != nil {
		return errNew
	}

	return decoder.Decode(input)
}

func decodePlayerHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(Player{}) {
			return data, nil
		}

		player, ok := ParsePlayer(data.(string))
		if !ok {
			return data, nil
		}

		return player, nil
	}
}

func decodeDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		text := data.(string)
		if !strings.Contains(text, ":") {
			return data, nil
		}

		return parseMinSecDuration(text), nil
	}
}

// parseMinSecDuration accepts "mm:ss" or "hh:mm:ss" property values such
// as those seen on ancillary RCON-derived status lines.
func parseMinSecDuration(s string) time.Duration {
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
