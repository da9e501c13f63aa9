package pipeline

import (
	"os"

	"pyrunner/internal/script"
)

// MergeEnv builds the env-var set injected into a script. Request
// credentials come first, then pass-through names read from the server's
// own environment, so the process environment wins on key collisions.
func MergeEnv(credentials map[string]string, passThrough []string) script.EnvVars {
	merged := make(script.EnvVars, len(credentials)+len(passThrough))

	for k, v := range credentials {
		merged[k] = v
	}

	for _, name := range passThrough {
		if val, ok := os.LookupEnv(name); ok {
			merged[name] = val
		}
	}

	return merged
}
