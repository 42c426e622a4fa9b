// Package buildinfo reports which build of the bot is running.
//
// Release builds stamp the values with -ldflags:
//
//	-X 'github.com/m3rciful/storybot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/storybot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/storybot/core/buildinfo.Date=2026-10-01T12:00:00Z'
//
// Unstamped builds fall back to the VCS data the Go toolchain embeds.
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

func init() {
	if Commit != "local" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			Commit = s.Value[:min(len(s.Value), 7)]
		case "vcs.time":
			if Date == "" {
				Date = s.Value
			}
		}
	}
}

// String renders a one-line build description for logs and the CLI.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
