// Package version formats the build stamp injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Info is the resolved build stamp
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	Modified  bool
}

// Resolve fills missing ldflags values from the embedded VCS build info
func Resolve(version, commit, buildTime string) Info {
	info := Info{Version: version, Commit: commit, BuildTime: buildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = fromBuildInfo(info, bi.Settings)
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

func fromBuildInfo(info Info, settings []debug.BuildSetting) Info {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// Short returns version-commit with the commit cut to seven characters
func (i Info) Short() string {
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if i.Modified && commit != "" {
		commit += "-dirty"
	}
	if commit == "" {
		return i.Version
	}
	return fmt.Sprintf("%s-%s", i.Version, commit)
}

// Detailed returns the multi-line form printed by `qual version`
func (i Info) Detailed() string {
	commit, built := i.Commit, i.BuildTime
	if commit == "" {
		commit = "unknown"
	}
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf(`qual (SSD qualification bench)
Version:    %s
Commit:     %s
Built:      %s
Go version: %s
OS/Arch:    %s/%s`,
		i.Version, commit, built,
		runtime.Version(),
		runtime.GOOS, runtime.GOARCH)
}
