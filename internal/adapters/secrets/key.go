// Package secrets maps secret-store keys onto backend paths.
package secrets

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrEmptyKey = errors.New("secret key is empty")

// Path turns a key such as "bottingctl://account/42/credential" into the
// slash-separated relative path "bottingctl/account/42/credential". Keys that
// would escape the backend root are rejected.
func Path(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", ErrEmptyKey
	}
	if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, `\`) {
		return "", fmt.Errorf("invalid secret key %q", key)
	}

	if scheme, rest, ok := strings.Cut(trimmed, "://"); ok {
		if scheme == "" || strings.ContainsAny(scheme, `/\`) {
			return "", fmt.Errorf("invalid secret key %q", key)
		}
		trimmed = scheme + "/" + rest
	}
	trimmed = strings.ReplaceAll(trimmed, `\`, "/")

	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, ":") {
		return "", fmt.Errorf("invalid secret key %q", key)
	}

	return cleaned, nil
}
