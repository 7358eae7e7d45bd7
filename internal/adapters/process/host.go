package process

import (
	"path/filepath"
	"strings"
)

const DefaultProcessName = "RobloxPlayerBeta.exe"

// matchesName compares an OS-reported process name with the configured one,
// ignoring case and a trailing .exe. Linux truncates comm to 15 bytes.
func matchesName(reported, want string) bool {
	reported = normalizeName(reported)
	want = normalizeName(want)
	if reported == "" || want == "" {
		return false
	}
	if reported == want {
		return true
	}
	return len(reported) == 15 && strings.HasPrefix(want, reported)
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(filepath.Base(name)))
	return strings.TrimSuffix(name, ".exe")
}
