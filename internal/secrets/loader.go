// Package secrets resolves API keys from files, inline config or the environment.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source lists the places a secret may come from. They are tried in the
// order File, Value, Env.
type Source struct {
	// Name labels the secret in errors.
	Name  string
	File  string
	Value string
	// Env names environment variables consulted last, first non-empty wins.
	Env []string
}

// Load returns the trimmed secret from the first configured place.
// A configured but unreadable or empty file is an error and never falls
// through to the other places.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	for _, key := range src.Env {
		if secret := strings.TrimSpace(os.Getenv(key)); secret != "" {
			return secret, nil
		}
	}

	if len(src.Env) > 0 {
		return "", fmt.Errorf("%s is not configured (set it in config or %s)", name, strings.Join(src.Env, ", "))
	}
	return "", fmt.Errorf("%s is not configured", name)
}
