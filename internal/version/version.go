// Package version reports which revision of pimigrate is running, based on
// the VCS information the Go toolchain embeds into binaries.
package version

import (
	"runtime/debug"
	"strings"
)

// Info describes the revision a binary was built from.
type Info struct {
	Revision string
	Modified bool
}

func read() (Info, bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{}, false
	}
	var info Info
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	if info.Revision != "" {
		return info, true
	}
	// Installed via go install: Main.Version is a pseudo-version like
	// v0.0.0-20240827190026-6ab9fef83042.
	v := bi.Main.Version
	if idx := strings.LastIndexByte(v, '-'); idx > -1 {
		return Info{Revision: v[idx+1:]}, true
	}
	return Info{}, false
}

// Read returns a commit URL for the running binary.
func Read() string {
	info, ok := read()
	if !ok {
		return "<unknown revision>"
	}
	suffix := ""
	if info.Modified {
		suffix = " (modified)"
	}
	return "https://github.com/pimigrate/tools/commit/" + info.Revision + suffix
}

// ReadBrief returns a short revision string such as g6ab9fe+, suitable for
// log fields.
func ReadBrief() string {
	info, ok := read()
	if !ok {
		return "unknown"
	}
	rev := info.Revision
	if len(rev) > 6 {
		rev = rev[:6]
	}
	if info.Modified {
		rev += "+"
	}
	return "g" + rev
}
