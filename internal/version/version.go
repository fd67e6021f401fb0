package version

import "fmt"

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/docrestyle/internal/version.Version=v0.3.0".
var Version = "unknown"

// Build metadata, also set through ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version and reported by /healthz.
func String() string {
	if GitCommit == "unknown" && BuildTime == "unknown" {
		return "docrestyle " + Version
	}
	return fmt.Sprintf("docrestyle %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
