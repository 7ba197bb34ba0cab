package config

import "fmt"

// Set via -ldflags "-X github.com/bobmcallan/mgnrega-portal/internal/config.Version=...".
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// Info is the build identity reported by /api/version, the MCP
// get_version tool and the binaries' --version output.
type Info struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	GitCommit string `json:"git_commit"`
}

// GetInfo returns the build identity.
func GetInfo() Info {
	return Info{Version: Version, Build: Build, GitCommit: GitCommit}
}

// String formats the identity for humans.
func (i Info) String() string {
	return fmt.Sprintf("%s (build %s, commit %s)", i.Version, i.Build, i.GitCommit)
}

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp.
func GetBuild() string {
	return Build
}

// GetGitCommit returns the git commit hash.
func GetGitCommit() string {
	return GitCommit
}
