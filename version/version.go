package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags "-X github.com/kbukum/runkit/version.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	BuiltAt   time.Time `json:"built_at,omitzero"`
	GoVersion string    `json:"go_version"`
	Module    string    `json:"module,omitempty"`
	Release   bool      `json:"release"`
	Dirty     bool      `json:"dirty"`
}

// Get collects version information from the ldflags variables, falling
// back to the VCS stamps the go toolchain embeds in the binary.
func Get() Info {
	info := Info{
		Version: Version,
		Commit:  GitCommit,
		Branch:  GitBranch,
		Release: Version != "dev" && !strings.Contains(Version, "dirty"),
	}
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuiltAt = t
		}
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	info.Module = bi.Main.Path
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuiltAt.IsZero() {
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					info.BuiltAt = t
				}
			}
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// Short returns version-commit, with a -dirty suffix for modified trees.
func (i Info) Short() string {
	if i.Commit == "" {
		return i.Version
	}
	s := i.Version + "-" + i.Commit
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// String returns the long form printed by `runkit version`. Branches other
// than main and master are included.
func (i Info) String() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit)
	}
	if i.Branch != "" && i.Branch != "main" && i.Branch != "master" {
		parts = append(parts, i.Branch)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	s := strings.Join(parts, "-")
	if !i.BuiltAt.IsZero() {
		s += fmt.Sprintf(" (built %s)", i.BuiltAt.UTC().Format(time.RFC3339))
	}
	if i.GoVersion != "" {
		s += " " + i.GoVersion
	}
	return s
}
