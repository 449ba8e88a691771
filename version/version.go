// Package version reports the statecache build, combining ldflags-provided values with the VCS metadata the Go
// toolchain embeds in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Build values, overridable through -ldflags "-X github.com/crytic/medusa-statecache/version.<Name>=<value>".
// Values left empty are filled in from the VCS build settings.
var (
	Version       = "0.1.0"
	GitCommit     = ""
	GitCommitTime = ""
	GitTreeDirty  = ""
)

// shortCommitLength is the number of commit hash characters printed in version strings.
const shortCommitLength = 7

// Info describes the build of the running binary.
type Info struct {
	Version       string `json:"version"`
	GitCommit     string `json:"gitCommit,omitempty"`
	GitCommitTime string `json:"gitCommitTime,omitempty"`
	GitTreeDirty  bool   `json:"gitTreeDirty"`
	GoVersion     string `json:"goVersion"`
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		applyBuildSettings(info.Settings)
	}
}

// applyBuildSettings fills in the VCS variables that were not set through ldflags.
func applyBuildSettings(settings []debug.BuildSetting) {
	targets := map[string]*string{
		"vcs.revision": &GitCommit,
		"vcs.time":     &GitCommitTime,
		"vcs.modified": &GitTreeDirty,
	}
	for _, setting := range settings {
		if target, ok := targets[setting.Key]; ok && *target == "" {
			*target = setting.Value
		}
	}
}

// GetInfo returns the build information of the running binary.
func GetInfo() Info {
	return Info{
		Version:       Version,
		GitCommit:     GitCommit,
		GitCommitTime: GitCommitTime,
		GitTreeDirty:  GitTreeDirty == "true",
		GoVersion:     runtime.Version(),
	}
}

// ShortCommit returns the abbreviated commit hash, suffixed with "-dirty" if the tree had uncommitted changes.
func (i Info) ShortCommit() string {
	commit := i.GitCommit
	if len(commit) > shortCommitLength {
		commit = commit[:shortCommitLength]
	}
	if commit != "" && i.GitTreeDirty {
		commit += "-dirty"
	}
	return commit
}

// FormattedTime returns the commit time in a human-readable format, or "unknown" if it was not recorded.
func (i Info) FormattedTime() string {
	if i.GitCommitTime == "" {
		return "unknown"
	}
	t, err := time.Parse(time.RFC3339, i.GitCommitTime)
	if err != nil {
		return i.GitCommitTime
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

// String returns the multi-line description printed by the version command.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "statecache version %s\n", i.Version)
	if i.GitCommit != "" {
		fmt.Fprintf(&sb, "  Commit:     %s\n", i.ShortCommit())
	}
	if i.GitCommitTime != "" {
		fmt.Fprintf(&sb, "  Built:      %s\n", i.FormattedTime())
	}
	fmt.Fprintf(&sb, "  Go version: %s\n", i.GoVersion)
	return sb.String()
}

// Short returns the single-line version printed by --version, e.g. "0.1.0+0123456-dirty".
func (i Info) Short() string {
	if i.GitCommit == "" {
		return i.Version
	}
	return i.Version + "+" + i.ShortCommit()
}
