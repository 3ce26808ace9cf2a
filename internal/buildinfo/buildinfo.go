// Package buildinfo provides build metadata for the driftprint binary.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is injected at build time with -ldflags "-X driftprint/internal/buildinfo.Version=...".
	Version string
	// Commit is the source control revision, injected at build time.
	Commit string
	// Date is the build timestamp, injected at build time.
	Date string
)

// Info contains normalized build metadata.
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
	OS      string `json:"os" yaml:"os"`
	Arch    string `json:"arch" yaml:"arch"`
}

// Get returns build metadata. Values missing from ldflags fall back to the
// module build info recorded by the Go toolchain, then to placeholders.
func Get() Info {
	info := Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = setting.Value
				}
			case "vcs.time":
				if info.Date == "" {
					info.Date = setting.Value
				}
			}
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}

// String formats build metadata for CLI output.
func (i Info) String() string {
	return fmt.Sprintf("driftprint %s\ncommit:  %s\nbuilt:   %s\ngo:      %s\nos/arch: %s/%s", i.Version, i.Commit, i.Date, i.Go, i.OS, i.Arch)
}
