package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	AllKeysToken = "ALL_KEYS"
	NoKeysToken  = "NO_KEYS"
)

type ChoiceMode int

const (
	ChoicesAll ChoiceMode = iota
	ChoicesNone
	ChoicesSet
)

// Choices is the set of keys a participant may respond with.
type Choices struct {
	Mode ChoiceMode
	Keys []string
}

func AllKeys() Choices { return Choices{Mode: ChoicesAll} }

func NoKeys() Choices { return Choices{Mode: ChoicesNone} }

func KeySet(keys ...string) Choices {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, NormalizeKey(k))
	}
	return Choices{Mode: ChoicesSet, Keys: out}
}

// ParseChoices accepts the ALL_KEYS / NO_KEYS tokens or a single key.
func ParseChoices(token string) Choices {
	switch token {
	case AllKeysToken:
		return AllKeys()
	case NoKeysToken:
		return NoKeys()
	default:
		return KeySet(token)
	}
}

// Allows compares case-insensitively, matching a browser host's default.
func (c Choices) Allows(key string) bool {
	switch c.Mode {
	case ChoicesAll:
		return true
	case ChoicesNone:
		return false
	}
	key = NormalizeKey(key)
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}

func (c Choices) AcceptsAny() bool {
	return c.Mode != ChoicesNone
}

func (c Choices) String() string {
	switch c.Mode {
	case ChoicesAll:
		return AllKeysToken
	case ChoicesNone:
		return NoKeysToken
	default:
		return "[" + strings.Join(c.Keys, ",") + "]"
	}
}

func (c Choices) MarshalJSON() ([]byte, error) {
	switch c.Mode {
	case ChoicesAll:
		return json.Marshal(AllKeysToken)
	case ChoicesNone:
		return json.Marshal(NoKeysToken)
	default:
		keys := c.Keys
		if keys == nil {
			keys = []string{}
		}
		return json.Marshal(keys)
	}
}

func (c *Choices) UnmarshalJSON(raw []byte) error {
	var token string
	if err := json.Unmarshal(raw, &token); err == nil {
		*c = ParseChoices(token)
		return nil
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return fmt.Errorf("choices must be %q, %q or a list of keys", AllKeysToken, NoKeysToken)
	}
	*c = KeySet(keys...)
	return nil
}

// NormalizeKey lower-cases multi-character key names and single letters.
func NormalizeKey(key string) string {
	return strings.ToLower(key)
}

// SimulatedKeys are the candidates drawn from when any key is allowed.
var SimulatedKeys = []string{
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", " ",
}
