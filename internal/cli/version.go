package cli

import (
	"runtime/debug"
	"strings"
)

const (
	devVersion         = "dev"
	goDevelMainVersion = "(devel)"
	vcsRevisionKey     = "vcs.revision"
	vcsModifiedKey     = "vcs.modified"
	shortRevisionLen   = 12
)

var readBuildInfo = debug.ReadBuildInfo

// resolvedVersion prefers the linker-injected version, then the module
// version, then the VCS revision recorded by the Go toolchain.
func resolvedVersion(injected string) string {
	injected = strings.TrimSpace(injected)
	if injected != "" && injected != devVersion {
		return injected
	}
	if info, ok := readBuildInfo(); ok && info != nil {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != goDevelMainVersion {
			return v
		}
		if revision, dirty := buildRevision(info.Settings); revision != "" {
			if dirty {
				revision += "-dirty"
			}
			return revision
		}
	}
	return devVersion
}

func buildRevision(settings []debug.BuildSetting) (revision string, dirty bool) {
	for _, setting := range settings {
		value := strings.TrimSpace(setting.Value)
		switch setting.Key {
		case vcsRevisionKey:
			revision = value
		case vcsModifiedKey:
			dirty = strings.EqualFold(value, "true")
		}
	}
	if len(revision) > shortRevisionLen {
		revision = revision[:shortRevisionLen]
	}
	return revision, dirty
}
