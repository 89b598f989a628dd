package config

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/stagecraft/stagecraft/internal/style"
)

// ParseUndecodedKeys renders the keys toml could not map onto the config, collapsing
// nested keys into their top-level table.
func ParseUndecodedKeys(undecodedKeys []toml.Key) string {
	unusedKeys := map[string]struct{}{}
	for _, key := range undecodedKeys {
		unusedKeys[key[0]] = struct{}{}
	}

	var errorKeys []string
	for errorKey := range unusedKeys {
		errorKeys = append(errorKeys, errorKey)
	}
	sort.Strings(errorKeys)

	for i, k := range errorKeys {
		errorKeys[i] = style.Symbol(k)
	}
	return strings.Join(errorKeys, ", ")
}
