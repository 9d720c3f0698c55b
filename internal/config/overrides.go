package config

import (
	"os"
	"sort"
	"strings"
)

// Override is one BAZAAR_* variable present in the environment.
type Override struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EnvOverrides lists the BAZAAR_* variables currently set, sorted by name.
// Used by the status command to show where effective settings came from.
func EnvOverrides() []Override {
	var out []Override
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix+"_") {
			continue
		}
		out = append(out, Override{Name: name, Value: maskValue(value)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// maskValue shortens long values so URLs with embedded tokens are not echoed.
func maskValue(v string) string {
	if len(v) <= 24 {
		return v
	}
	return v[:12] + "..." + v[len(v)-4:]
}
