package launcher

import (
	"fmt"

	"github.com/bft-labs/lifeline/pkg/lifecycle"
	"github.com/bft-labs/lifeline/pkg/log"
	"github.com/bft-labs/lifeline/pkg/state"
)

// Version is the current version of the launcher module.
const Version = "2.0.0"

type moduleVersion struct {
	version    string
	minVersion string
}

var modules = map[string]moduleVersion{
	"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
	"state":     {state.Version, state.MinCompatibleVersion},
	"log":       {log.Version, log.MinCompatibleVersion},
}

// ModuleVersions returns the version of every versioned sub-module.
func ModuleVersions() map[string]string {
	out := make(map[string]string, len(modules)+1)
	out["launcher"] = Version
	for name, m := range modules {
		out[name] = m.version
	}
	return out
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion.
// Versions are "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
