package logparse

import (
	"regexp"
	"strings"
)

var rxProps = regexp.MustCompile(`\((\S+)(?: "([^"]*)")?\)`)

// Props is a parsed `(<key>["<value>"])*` clause sequence. Keys keep
// their original casing as last written, but Get performs a
// case-insensitive lookup.
type Props map[string]string

// ParseProps extracts every `(<key>["<value>"])` cluster from s. Keys are
// case-insensitive for the purpose of last-writer-wins: a later clause
// whose key differs only in case replaces the earlier entry (including
// its casing). A clause with no value carries the literal string "true".
func ParseProps(s string) Props {
	props := Props{}
	seen := map[string]string{} // lowercase key -> actual stored key

	for _, match := range rxProps.FindAllStringSubmatch(s, -1) {
		key := match[1]
		value := match[2]

		if value == "" && !strings.Contains(match[0], `"`) {
			value = "true"
		}

		lower := strings.ToLower(key)

		if prior, ok := seen[lower]; ok {
			delete(props, prior)
		}

		seen[lower] = key
		props[key] = value
	}

	return props
}

// Get performs a case-insensitive lookup.
func (p Props) Get(key string) (string, bool) {
	lower := strings.ToLower(key)

	for k, v := range p {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}

	return "", false
}
