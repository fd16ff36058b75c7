package signtype

import (
	"fmt"

	"github.com/bft-labs/signtype/pkg/lifecycle"
	"github.com/bft-labs/signtype/pkg/log"
	"github.com/bft-labs/signtype/pkg/policy"
	"github.com/bft-labs/signtype/pkg/session"
	"github.com/bft-labs/signtype/pkg/window"
)

// Version is the version of the signtype server API.
const Version = "1.0.0"

type moduleVersion struct {
	version    string
	minVersion string
}

func moduleVersions() map[string]moduleVersion {
	return map[string]moduleVersion{
		"window":    {window.Version, window.MinCompatibleVersion},
		"policy":    {policy.Version, policy.MinCompatibleVersion},
		"session":   {session.Version, session.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}
}

// ModuleVersions returns the version of every sub-module.
func ModuleVersions() map[string]string {
	out := make(map[string]string)
	for name, m := range moduleVersions() {
		out[name] = m.version
	}
	return out
}

// validateModuleVersions checks that every module is at or above its minimum
// compatible version.
func validateModuleVersions() error {
	for name, m := range moduleVersions() {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion. Versions are
// "major.minor.patch".
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
