package main

import "runtime/debug"

var version = getVersion()

// getVersion reports the module version for tagged installs and the short
// VCS revision for local builds.
func getVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if revision == "" {
		return "dev"
	}
	revision = revision[:min(len(revision), 7)]
	if dirty {
		return revision + "-dirty"
	}
	return revision
}
