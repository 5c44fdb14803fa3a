package provider

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissingCredential is returned when a required environment variable is
// absent. Callers distinguish it from request failures: a missing credential
// means the operation should not be attempted at all (tests skip, the CLI
// exits with a configuration error).
var ErrMissingCredential = errors.New("missing credential")

// Credential holds an environment-sourced API key and base URL. Values are
// read once at construction and never mutated.
type Credential struct {
	APIKey  string
	BaseURL string
}

// CredentialFromEnv reads an API key and base URL from the environment.
// keyVar names the required API key variable; its absence yields an error
// wrapping ErrMissingCredential that names the variable. baseVar names an
// optional base URL variable; defaultBase is used when it is unset.
func CredentialFromEnv(keyVar, baseVar, defaultBase string) (Credential, error) {
	key := strings.TrimSpace(os.Getenv(keyVar))
	if key == "" {
		return Credential{}, fmt.Errorf("%w: %s is not set", ErrMissingCredential, keyVar)
	}

	base := defaultBase
	if baseVar != "" {
		if v := strings.TrimSpace(os.Getenv(baseVar)); v != "" {
			base = v
		}
	}

	return Credential{APIKey: key, BaseURL: base}, nil
}
