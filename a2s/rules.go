package a2s

import (
	"github.com/calyxforge/valveclient/errs"
	"github.com/calyxforge/valveclient/wire"
)

// Rule is one key/value pair of an A2S_RULES response.
type Rule struct {
	Name  string
	Value string
}

// ParseRules parses an A2S_RULES response payload (header already
// stripped): response-type byte, i16 count, then that many (key, value)
// NUL-terminated string pairs.
func ParseRules(data []byte) ([]Rule, error) {
	if len(data) < 3 || data[0] != respRules {
		return nil, &errs.FormatError{Input: string(data)}
	}

	count := int(wire.ReadInt16(data, 1))
	offset := 3

	rules := make([]Rule, 0, count)

	for i := 0; i < count; i++ {
		if offset >= len(data) {
			return nil, &errs.FormatError{Input: string(data)}
		}

		var rule Rule

		rule.Name, offset = wire.ReadCString(data, offset)
		rule.Value, offset = wire.ReadCString(data, offset)

		rules = append(rules, rule)
	}

	return rules, nil
}
