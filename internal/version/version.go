package version

import "runtime/debug"

// Version is set at build time with
// -ldflags "-X github.com/bnema/bottingctl/internal/version.Version=v1.2.3".
var Version = "dev"

// String prefers the linker-set value and falls back to the module
// version recorded by `go install`.
func String() string {
	if Version != "dev" && Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
